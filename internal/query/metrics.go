package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// queryDuration measures read-side graph queries.
// Labels: op (local_subgraph, orphans, hubs, central, stale, random)
var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "zettel",
	Name:      "query_duration_seconds",
	Help:      "Graph query latency in seconds",
	Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"op"})

func observe(op string, start time.Time) {
	queryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
