package render

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
)

const metricNamespace = "histotrend"

// ReportRegistry returns a registry holding gauges that describe rep:
// classes per verdict, the overall verdict, the snapshot count and the last
// byte size and instance count of every listed class.
func ReportRegistry(rep *report.Report) (*prometheus.Registry, error) {
	constLabels := prometheus.Labels{"report": rep.Meta.Identifier}

	classes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "report",
		Name:        "classes",
		Help:        "Classes above the byte limit per verdict.",
		ConstLabels: constLabels,
	}, []string{"verdict"})

	result := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "report",
		Name:        "result",
		Help:        "1 for the overall verdict of the report, 0 for the others.",
		ConstLabels: constLabels,
	}, []string{"verdict"})

	snapshots := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "report",
		Name:        "snapshots",
		Help:        "Histogram dumps the report was built from.",
		ConstLabels: constLabels,
	})

	generated := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "report",
		Name:        "timestamp_seconds",
		Help:        "Unix time the report was generated.",
		ConstLabels: constLabels,
	})

	classBytes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "class",
		Name:        "bytes",
		Help:        "Bytes held by a listed class in the last histogram dump.",
		ConstLabels: constLabels,
	}, []string{"class", "verdict", "watched"})

	classInstances := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricNamespace,
		Subsystem:   "class",
		Name:        "instances",
		Help:        "Instances of a listed class in the last histogram dump.",
		ConstLabels: constLabels,
	}, []string{"class", "verdict", "watched"})

	reg := prometheus.NewRegistry()

	for _, c := range []prometheus.Collector{classes, result, snapshots, generated, classBytes, classInstances} {
		err := reg.Register(c)
		if err != nil {
			return nil, fmt.Errorf("register report metric: %w", err)
		}
	}

	for _, v := range histo.Verdicts() {
		classes.WithLabelValues(v.String()).Set(float64(rep.Histogram[v]))

		if v == rep.Verdict {
			result.WithLabelValues(v.String()).Set(1)
		} else {
			result.WithLabelValues(v.String()).Set(0)
		}
	}

	snapshots.Set(float64(len(rep.Timestamps)))

	if !rep.Meta.ReportTime.IsZero() {
		generated.Set(float64(rep.Meta.ReportTime.Unix()))
	}

	for _, d := range rep.Details {
		labels := []string{d.Class.Name, d.Verdict.String(), strconv.FormatBool(d.Class.OnWatchList)}

		if b := last(d.Bytes); b != nil {
			classBytes.WithLabelValues(labels...).Set(float64(*b))
		}

		if n := last(d.Instances); n != nil {
			classInstances.WithLabelValues(labels...).Set(float64(*n))
		}
	}

	return reg, nil
}

// WritePrometheus writes the report gauges, plus any extra gatherers such as
// the process telemetry registry, to path in the node exporter textfile
// format.
func WritePrometheus(path string, rep *report.Report, extra ...prometheus.Gatherer) error {
	reg, err := ReportRegistry(rep)
	if err != nil {
		return err
	}

	gatherers := append(prometheus.Gatherers{reg}, extra...)

	err = prometheus.WriteToTextfile(path, gatherers)
	if err != nil {
		return fmt.Errorf("write metrics file %s: %w", path, err)
	}

	return nil
}
