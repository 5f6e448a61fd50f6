package query

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache activity per key root.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
}

// NewMetrics creates unregistered cache counters.
func NewMetrics() *Metrics {
	counter := func(name string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alchemist",
			Subsystem: "query_cache",
			Name:      name,
		}, []string{"query"})
	}
	return &Metrics{
		Hits:          counter("hits"),
		Misses:        counter("misses"),
		Fetches:       counter("fetches"),
		FetchErrors:   counter("fetch_errors"),
		Invalidations: counter("invalidations"),
	}
}

// Collectors returns the counters for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Hits, m.Misses, m.Fetches, m.FetchErrors, m.Invalidations}
}
