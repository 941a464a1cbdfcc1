package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/histotrend/internal/observability"
	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

func TestTracingHandler_InjectsTraceAndService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "histotrend", "test", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.WithGroup("g").InfoContext(ctx, "hello", "k", "v")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "histotrend", record["service"])
	assert.Equal(t, "cli", record["mode"])
	assert.Equal(t, "test", record["env"])

	group, ok := record["g"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, traceID.String(), group["trace_id"])
	assert.Equal(t, "v", group["k"])
}

func TestTracingHandler_NoSpan_NoTraceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(observability.NewTracingHandler(slog.NewJSONHandler(&buf, nil), "svc", "", observability.ModeMCP))
	logger.Info("plain")

	assert.NotContains(t, buf.String(), "trace_id")
	assert.NotContains(t, buf.String(), `"env"`)
	assert.Contains(t, buf.String(), `"mode":"mcp"`)
}

func TestTracingHandler_EnabledFollowsInner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := observability.NewTracingHandler(inner, "histotrend", "", observability.ModeCLI)

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelWarn))

	logger := slog.New(handler).With("report", "run-1")
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"report":"run-1"`)
	assert.Contains(t, buf.String(), `"service":"histotrend"`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, observability.ParseOTLPHeaders(" a = 1 ,b=2"))
}

func TestInit_NoEndpoint_NoopProviders(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestAnalysisMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	am, err := observability.NewAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	am.RecordRun(context.Background(), observability.AnalysisStats{
		Snapshots: 3,
		Classes:   42,
		Verdicts:  map[histo.Verdict]int{histo.GrowCritical: 2, histo.Stable: 40},
		Duration:  150 * time.Millisecond,
	})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(3), sums["histotrend.analysis.snapshots.total"])
	assert.Equal(t, int64(42), sums["histotrend.analysis.classes.total"])
	assert.Equal(t, int64(42), sums["histotrend.analysis.verdicts.total"])
}

func TestMetrics_NilReceiverSafe(t *testing.T) {
	t.Parallel()

	var am *observability.AnalysisMetrics

	var rm *observability.REDMetrics

	assert.NotPanics(t, func() {
		am.RecordRun(context.Background(), observability.AnalysisStats{})
		rm.RecordRequest(context.Background(), "op", observability.StatusOK, time.Second)
	})
}

func TestPrometheusExport_GathersOTelMetrics(t *testing.T) {
	t.Parallel()

	export, err := observability.NewPrometheusExport()
	require.NoError(t, err)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(export.Reader))

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "mcp.histotrend_classify", observability.StatusError, time.Millisecond)

	families, err := export.Registry.Gather()
	require.NoError(t, err)

	var found string
	for _, f := range families {
		found += f.GetName() + "\n"
	}

	assert.Contains(t, found, "histotrend_errors")
	assert.Contains(t, found, "histotrend_requests")
}
