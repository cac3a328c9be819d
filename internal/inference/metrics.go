package inference

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestDuration measures inference calls end to end.
	// Labels: model, mode (generate, stream)
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zettel",
		Subsystem: "inference",
		Name:      "request_duration_seconds",
		Help:      "Inference request latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30, 60, 90},
	}, []string{"model", "mode"})

	// tokens counts streamed fragments.
	tokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "inference",
		Name:      "tokens_total",
		Help:      "Streamed token fragments received",
	}, []string{"model"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "inference",
		Name:      "rate_limit_aborts_total",
		Help:      "Calls abandoned while waiting for the rate limiter",
	})
)

func observeRequest(model, mode string, start time.Time) {
	requestDuration.WithLabelValues(model, mode).Observe(time.Since(start).Seconds())
}
