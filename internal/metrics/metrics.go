// Package metrics records search statistics on a private Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects search counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	fallbacks      prometheus.Counter
	entriesVisited prometheus.Counter
	dirsListed     prometheus.Counter
	softSkips      prometheus.Counter
	truncated      prometheus.Counter
	duration       *prometheus.HistogramVec
	providerHealth prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "searches_total",
			Help:      "Searches executed, by backend.",
		}, []string{"backend"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "provider_fallbacks_total",
			Help:      "Provider calls that failed and fell through to the navigator.",
		}),
		entriesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "entries_visited_total",
			Help:      "Filesystem entries evaluated by the traversal engine.",
		}),
		dirsListed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "directory_listings_total",
			Help:      "Directory listing calls issued by the traversal engine.",
		}),
		softSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "soft_skips_total",
			Help:      "Directories skipped because they could not be read.",
		}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scout",
			Name:      "truncated_searches_total",
			Help:      "Searches that stopped at the result budget or were cancelled.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scout",
			Name:      "search_duration_seconds",
			Help:      "Search wall time, by backend.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"backend"}),
		providerHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scout",
			Name:      "provider_healthy",
			Help:      "1 when the indexed provider probe succeeded, 0 otherwise.",
		}),
	}

	r.registry.MustRegister(
		r.searches, r.fallbacks, r.entriesVisited, r.dirsListed,
		r.softSkips, r.truncated, r.duration, r.providerHealth,
	)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveSearch records one completed search.
func (r *Recorder) ObserveSearch(backend string, entriesVisited, dirsListed, softSkips int, truncated bool, d time.Duration) {
	if r == nil {
		return
	}
	r.searches.WithLabelValues(backend).Inc()
	r.entriesVisited.Add(float64(entriesVisited))
	r.dirsListed.Add(float64(dirsListed))
	r.softSkips.Add(float64(softSkips))
	if truncated {
		r.truncated.Inc()
	}
	r.duration.WithLabelValues(backend).Observe(d.Seconds())
}

// ProviderFallback records a provider failure that fell through to the navigator.
func (r *Recorder) ProviderFallback() {
	if r == nil {
		return
	}
	r.fallbacks.Inc()
}

// ProviderHealth records the cached probe outcome.
func (r *Recorder) ProviderHealth(healthy bool) {
	if r == nil {
		return
	}
	if healthy {
		r.providerHealth.Set(1)
	} else {
		r.providerHealth.Set(0)
	}
}

// WriteTextfile writes all metrics in text exposition format to path,
// suitable for a node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
