package materials

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Boundary kinds used as the "kind" metric label.
const (
	kindSelf      = "self"
	kindInterface = "interface"
	kindAir       = "air"
)

// Metrics counts tracker activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	mergeAttempts prometheus.Counter
	boundaries    *prometheus.CounterVec
	tracked       prometheus.Gauge
}

// NewMetrics registers the tracker metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mergeAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "blobmaker_merge_attempts_total",
			Help: "Merge commands issued between material groups.",
		}),
		boundaries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blobmaker_boundaries_total",
			Help: "Boundaries created, by kind.",
		}, []string{"kind"}),
		tracked: f.NewGauge(prometheus.GaugeOpts{
			Name: "blobmaker_tracked_geometries",
			Help: "Entities currently tracked across all materials.",
		}),
	}
}

func (m *Metrics) mergeAttempt() {
	if m != nil {
		m.mergeAttempts.Inc()
	}
}

func (m *Metrics) boundary(kind string) {
	if m != nil {
		m.boundaries.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) trackedDelta(d int) {
	if m != nil {
		m.tracked.Add(float64(d))
	}
}
