package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exposes every key as a label on two gauge vectors, one
// for counts and one for gauges. Counts are absolute totals kept by the
// caller, so they are published as gauges rather than counters.
type PrometheusMetrics struct {
	counts *prometheus.GaugeVec
	gauges *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the vectors with reg under namespace.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		counts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "counts",
				Help:      "Running totals reported by the store, by key",
			},
			[]string{"key"},
		),
		gauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauges",
				Help:      "Point-in-time values reported by the store, by key",
			},
			[]string{"key"},
		),
	}
	if err := reg.Register(m.counts); err != nil {
		return nil, err
	}
	if err := reg.Register(m.gauges); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PrometheusMetrics) SetCount(key string, value int64) {
	m.counts.WithLabelValues(key).Set(float64(value))
}

func (m *PrometheusMetrics) SetGauge(key string, value float64) {
	m.gauges.WithLabelValues(key).Set(value)
}
