package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
)

// PrometheusExport collects OTel metrics into a private Prometheus registry
// so they can be written out together with report gauges.
type PrometheusExport struct {
	Registry *prometheus.Registry
	Reader   *promexporter.Exporter
}

// NewPrometheusExport creates a registry and an OTel exporter registered on
// it. Pass Reader to Init to feed it.
func NewPrometheusExport() (*PrometheusExport, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusExport{Registry: registry, Reader: exporter}, nil
}
