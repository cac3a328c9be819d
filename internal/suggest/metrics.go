package suggest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generations counts finished generations.
	// Labels: outcome (complete, error, cancelled, superseded)
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "suggest",
		Name:      "generations_total",
		Help:      "Suggestion generations by outcome",
	}, []string{"outcome"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zettel",
		Subsystem: "suggest",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of suggestion generations",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60, 90},
	})

	// cacheLookups counts cache reads. Labels: result (miss, fresh, outdated)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "suggest",
		Name:      "cache_lookups_total",
		Help:      "Suggestion cache lookups by result",
	}, []string{"result"})
)

func observeGeneration(outcome string, start time.Time) {
	generations.WithLabelValues(outcome).Inc()
	generationDuration.Observe(time.Since(start).Seconds())
}

func observeLookup(l *Lookup, ok bool) {
	switch {
	case !ok:
		cacheLookups.WithLabelValues("miss").Inc()
	case l.Outdated:
		cacheLookups.WithLabelValues("outdated").Inc()
	default:
		cacheLookups.WithLabelValues("fresh").Inc()
	}
}
