package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformal_messages_routed_total",
		Help: "Messages dispatched and acknowledged, by routing decision.",
	}, []string{"decision"})

	messageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conformal_message_failures_total",
		Help: "Messages that aborted the run, by failing stage.",
	}, []string{"stage"})

	batchesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conformal_batches_received_total",
		Help: "Non-empty batches received from the source queue.",
	})

	pValues = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conformal_p_value",
		Help:    "Empirical p-values of scored messages.",
		Buckets: []float64{0.05, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
	})

	scoringLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conformal_scoring_duration_seconds",
		Help:    "Latency of the scoring capability.",
		Buckets: prometheus.DefBuckets,
	})
)
