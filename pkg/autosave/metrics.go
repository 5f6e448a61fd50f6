package autosave

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes.
type Metrics struct {
	Writes    prometheus.Counter
	Failures  prometheus.Counter
	Coalesced prometheus.Counter
	Unchanged prometheus.Counter
	Discarded prometheus.Counter
}

// NewMetrics creates unregistered pipeline counters.
func NewMetrics() *Metrics {
	counter := func(name string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alchemist",
			Subsystem: "autosave",
			Name:      name,
		})
	}
	return &Metrics{
		Writes:    counter("writes"),
		Failures:  counter("failures"),
		Coalesced: counter("coalesced_edits"),
		Unchanged: counter("unchanged_skips"),
		Discarded: counter("stale_discards"),
	}
}

// Collectors returns the counters for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Writes, m.Failures, m.Coalesced, m.Unchanged, m.Discarded}
}
