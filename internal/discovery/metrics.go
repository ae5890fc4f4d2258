package discovery

import "github.com/prometheus/client_golang/prometheus"

// Result label values for the entities counter.
const (
	resultPublished = "published"
	resultFailed    = "failed"
)

// Metrics holds the agent's Prometheus collectors.
type Metrics struct {
	Entities *prometheus.CounterVec
	Runs     prometheus.Counter
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosdiscover_entities_total",
			Help: "Entities processed by the discovery agent, by category and result.",
		}, []string{"category", "result"}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rosdiscover_runs_total",
			Help: "Completed discovery runs.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rosdiscover_run_duration_seconds",
			Help:    "Wall time of a discovery run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Entities, m.Runs, m.Duration)
	}
	return m
}
