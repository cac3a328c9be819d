package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutations counts committed and failed graph mutations.
	// Labels: op (create, save, update, delete), result (ok, error)
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "graph",
		Name:      "mutations_total",
		Help:      "Graph mutations by operation and result",
	}, []string{"op", "result"})

	// retries counts transient store failures that were retried.
	retries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "graph",
		Name:      "transient_retries_total",
		Help:      "Transient store failures retried once",
	})

	// edgeDelta counts edges added and removed by saves.
	// Labels: kind (added, removed)
	edgeDelta = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zettel",
		Subsystem: "graph",
		Name:      "edge_changes_total",
		Help:      "Edges added or removed while applying link deltas",
	}, []string{"kind"})
)

func observeMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mutations.WithLabelValues(op, result).Inc()
}
