package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(sentimentItemsTotal, providerLatencyMs, dispatchRunsTotal) }

var sentimentItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sentiment_batch_items_total",
		Help: "Conversations processed by sentiment batches, labeled by provider and outcome.",
	},
	[]string{"provider", "outcome"}, // 'ok', 'error'
)

var providerLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sentiment_provider_latency_ms",
		Help:    "Per-item provider classification latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"provider", "success"},
)

var dispatchRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Dispatcher invocations, labeled by outcome (ok/busy/error).",
	},
	[]string{"outcome"},
)

func IncSentimentItem(provider string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	sentimentItemsTotal.WithLabelValues(norm(provider), outcome).Inc()
}

func ObserveProviderLatency(provider string, ms int64, success bool) {
	providerLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).Observe(float64(ms))
}

func IncDispatchRun(outcome string) {
	dispatchRunsTotal.WithLabelValues(norm(outcome)).Inc()
}
