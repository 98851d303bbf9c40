package telemetry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics records mapping executions and rule applications.
//
// Metrics:
//   - <ns>_executions_total: executions by mapping and status
//   - <ns>_execution_duration_seconds: execution duration by mapping
//   - <ns>_rules_applied_total: top-level rule applications by mapping, kind and status
//   - <ns>_rule_duration_seconds: rule duration by kind
type Metrics struct {
	registry *prometheus.Registry

	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	rules             *prometheus.CounterVec
	ruleDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. A nil registry gets a
// fresh one.
func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of mapping executions",
			},
			[]string{"mapping", "status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of mapping executions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"mapping"},
		),
		rules: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_applied_total",
				Help:      "Total number of top-level rule applications",
			},
			[]string{"mapping", "kind", "status"},
		),
		ruleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rule_duration_seconds",
				Help:      "Duration of rule applications in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(m.executions, m.executionDuration, m.rules, m.ruleDuration)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RuleApplied implements engine.Observer.
func (m *Metrics) RuleApplied(mapping, kind string, elapsed time.Duration, err error) {
	m.rules.WithLabelValues(mapping, kind, status(err)).Inc()
	m.ruleDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ExecutionFinished implements engine.Observer.
func (m *Metrics) ExecutionFinished(mapping string, elapsed time.Duration, err error) {
	m.executions.WithLabelValues(mapping, status(err)).Inc()
	m.executionDuration.WithLabelValues(mapping).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}

// WriteText prints one line per sample, sorted by metric name. Histograms
// are summarized by their count and sum.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, f := range families {
		for _, metric := range f.GetMetric() {
			labels := formatLabels(metric.GetLabel())

			var lines []string

			switch f.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, sample(f.GetName(), labels, metric.GetCounter().GetValue()))
			case dto.MetricType_GAUGE:
				lines = append(lines, sample(f.GetName(), labels, metric.GetGauge().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines,
					sample(f.GetName()+"_count", labels, float64(h.GetSampleCount())),
					sample(f.GetName()+"_sum", labels, h.GetSampleSum()))
			default:
				continue
			}

			for _, line := range lines {
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}

	sort.Strings(parts)

	return "{" + strings.Join(parts, ",") + "}"
}

func sample(name, labels string, v float64) string {
	return fmt.Sprintf("%s%s %g", name, labels, v)
}
