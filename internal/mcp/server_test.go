package mcp_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histotrend/internal/mcp"
)

const dumpTemplate = `  1:  %d  %d  java.lang.String (java.base@11.0.6)
  2:  10  3200  java.lang.Integer (java.base@11.0.6)
`

func sprintfDump(instances, bytes int) string {
	return fmt.Sprintf(dumpTemplate, instances, bytes)
}

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	require.NotNil(t, srv)

	assert.Equal(t, []string{"histotrend_analyze", "histotrend_classify"}, srv.ListToolNames())
}

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *mcp.Server) (context.Context, *mcpsdk.ClientSession) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return ctx, session
}

func TestMCPServer_InMemoryTransport_ToolsList(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	toolNames := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		toolNames = append(toolNames, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"histotrend_analyze", "histotrend_classify"}, toolNames)
}

func TestMCPServer_InMemoryTransport_CallClassify(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "histotrend_classify",
		Arguments: map[string]any{
			"values": []any{100, nil, 300},
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "GROW_CRITICAL")
}

func TestMCPServer_InMemoryTransport_CallAnalyze(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for i, name := range []string{
		"dump-2020-06-17T22_10_00.histo",
		"dump-2020-06-17T22_20_00.histo",
		"dump-2020-06-17T22_30_00.histo",
	} {
		content := []byte(sprintfDump(100*(i+1), 4096*(i+1)))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o600))
	}

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name: "histotrend_analyze",
		Arguments: map[string]any{
			"dir":        dir,
			"identifier": "mcp-run",
			"time_zone":  "UTC",
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"leakResult": "GROW_CRITICAL"`)
	assert.Contains(t, text.Text, `"identifier": "mcp-run"`)
	assert.Contains(t, text.Text, "java.lang.String")
}

func TestMCPServer_InMemoryTransport_CallAnalyze_Error(t *testing.T) {
	t.Parallel()

	ctx, session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "histotrend_analyze",
		Arguments: map[string]any{"dir": "relative"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}
