package model

import (
	"encoding/json"
	"time"
)

// ProcessingMetrics is an append-only snapshot of one batch run. Rows are
// never mutated after insertion.
type ProcessingMetrics struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Metrics   json.RawMessage `json:"metrics"`
	CreatedAt time.Time       `json:"created_at"`
}

// SentimentBatchMetrics is the metrics payload appended after a sentiment
// batch. AvgConfidence averages successful items only.
type SentimentBatchMetrics struct {
	TotalProcessed int               `json:"total_processed"`
	Successful     int               `json:"successful"`
	Failed         int               `json:"failed"`
	Provider       string            `json:"provider"`
	AvgConfidence  float64           `json:"avg_confidence"`
	Distribution   map[Sentiment]int `json:"distribution"`
}

// QueueStats is a derived, on-demand view over the job store. An empty
// store yields all-zero stats.
type QueueStats struct {
	ByStatus            map[JobStatus]int   `json:"by_status"`
	ByType              map[JobType]int     `json:"by_type"`
	ByPriority          map[JobPriority]int `json:"by_priority"`
	AvgProcessingTimeMs float64             `json:"avg_processing_time_ms"`
}

func NewQueueStats() *QueueStats {
	return &QueueStats{
		ByStatus:   make(map[JobStatus]int),
		ByType:     make(map[JobType]int),
		ByPriority: make(map[JobPriority]int),
	}
}
