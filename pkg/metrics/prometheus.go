package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder is a Recorder backed by a counter and a histogram vector
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the x402 payment collectors on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "x402",
			Subsystem: "client",
			Name:      "payment_events_total",
			Help:      "x402 client payment events",
		},
		[]string{"type", "network", "scheme"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "x402",
			Subsystem: "client",
			Name:      "latency_seconds",
			Help:      "x402 client operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "network", "scheme"},
	)

	for _, c := range []prometheus.Collector{counters, histogram} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}, nil
}

// IncCounter counts one event of type name
func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"network": labels["network"],
		"scheme":  labels["scheme"],
	}).Inc()
}

// ObserveLatency records d in seconds for operation name
func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"network":   labels["network"],
		"scheme":    labels["scheme"],
	}).Observe(d.Seconds())
}
