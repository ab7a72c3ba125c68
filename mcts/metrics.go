package mcts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments search batches and belief updates. A nil *Metrics
// records nothing.
type Metrics struct {
	simulations   *prometheus.CounterVec
	searchSeconds *prometheus.HistogramVec
	treeSize      *prometheus.GaugeVec
	treeDepth     *prometheus.GaugeVec
	beliefSize    *prometheus.GaugeVec
	deprivations  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	labels := []string{"engine"}
	return &Metrics{
		simulations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pomcp_simulations_total",
			Help: "Simulations run by search batches.",
		}, labels),
		searchSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pomcp_search_duration_seconds",
			Help:    "Wall-clock duration of one search batch.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, labels),
		treeSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pomcp_tree_size",
			Help: "Nodes created by the last search batch.",
		}, labels),
		treeDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pomcp_tree_depth",
			Help: "Deepest tree level reached by the last search batch.",
		}, labels),
		beliefSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pomcp_belief_particles",
			Help: "Particles in the root belief after the last update.",
		}, labels),
		deprivations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pomcp_particle_deprivations_total",
			Help: "Belief updates that ended without a consistent particle.",
		}, labels),
	}
}

func (m *Metrics) ObserveSearch(engine string, simulations int, d time.Duration, size, depth int) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(engine).Add(float64(simulations))
	m.searchSeconds.WithLabelValues(engine).Observe(d.Seconds())
	m.treeSize.WithLabelValues(engine).Set(float64(size))
	m.treeDepth.WithLabelValues(engine).Set(float64(depth))
}

func (m *Metrics) ObserveBelief(engine string, particles int) {
	if m == nil {
		return
	}
	m.beliefSize.WithLabelValues(engine).Set(float64(particles))
}

func (m *Metrics) Deprivation(engine string) {
	if m == nil {
		return
	}
	m.deprivations.WithLabelValues(engine).Inc()
}

// Simulations exposes the simulation counter of engine.
func (m *Metrics) Simulations(engine string) prometheus.Counter {
	return m.simulations.WithLabelValues(engine)
}

// Deprivations exposes the deprivation counter of engine.
func (m *Metrics) Deprivations(engine string) prometheus.Counter {
	return m.deprivations.WithLabelValues(engine)
}
