package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, handlerLatencyMs) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "processing_jobs_total",
		Help: "Total number of processing jobs run, labeled by type and terminal status.",
	},
	[]string{"type", "status"}, // 'completed', 'failed'
)

var handlerLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "job_handler_latency_ms",
		Help:    "Handler execution latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"type"},
)

func IncJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(norm(jobType), norm(status)).Inc()
}

func ObserveHandlerLatency(jobType string, ms int64) {
	handlerLatencyMs.WithLabelValues(norm(jobType)).Observe(float64(ms))
}
