package thread

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts modelized features. A nil *Metrics records nothing.
type Metrics struct {
	features *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the modelization metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threadmodeler",
			Name:      "features_total",
			Help:      "Thread features processed, by thread kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "threadmodeler",
			Name:      "feature_duration_seconds",
			Help:      "Time spent modelizing one thread feature.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
	}
	reg.MustRegister(m.features, m.duration)
	return m
}

func (m *Metrics) observe(kind string, outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.features.WithLabelValues(kind, outcome.String()).Inc()
	if outcome != OutcomeSkipped {
		m.duration.WithLabelValues(kind).Observe(d.Seconds())
	}
}
