// Package prometheus exposes crawl counters and destination slot load as
// Prometheus metrics.
package prometheus

import (
	"net/http"

	"github.com/fwojciec/crawlfront"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Ensure Stats implements crawlfront.Stats at compile time.
var _ crawlfront.Stats = (*Stats)(nil)

// Stats records crawl counters in a crawlfront_stats_total counter vector
// labeled by key.
type Stats struct {
	registry *prometheus.Registry
	counters *prometheus.CounterVec
}

// NewStats creates a Stats with its own registry, which also carries the
// Go runtime and process collectors.
func NewStats() *Stats {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crawlfront",
		Name:      "stats_total",
		Help:      "Crawl counters by stats key.",
	}, []string{"key"})
	registry.MustRegister(counters)
	return &Stats{registry: registry, counters: counters}
}

// Inc adds n to the counter for key. Negative values are ignored.
func (s *Stats) Inc(key string, n int) {
	if n <= 0 {
		return
	}
	s.counters.WithLabelValues(key).Add(float64(n))
}

// Value returns the current count for key.
func (s *Stats) Value(key string) int {
	var m dto.Metric
	if err := s.counters.WithLabelValues(key).Write(&m); err != nil {
		return 0
	}
	return int(m.GetCounter().GetValue())
}

// Register adds a collector to the registry served by Handler.
func (s *Stats) Register(c prometheus.Collector) error {
	return s.registry.Register(c)
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
