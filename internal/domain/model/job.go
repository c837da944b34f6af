package model

import (
	"encoding/json"
	"fmt"
	"time"

	"convmonitor/internal/domain"
)

type JobType string

const (
	JobTypeSentimentAnalysis    JobType = "sentiment_analysis"
	JobTypeContentNormalization JobType = "content_normalization"
	JobTypeTrendAnalysis        JobType = "trend_analysis"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// CanTransitionTo enforces the forward-only lifecycle:
// pending -> processing -> completed|failed. Nothing moves backward
// and nothing leaves a terminal state.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityMedium JobPriority = "medium"
	JobPriorityHigh   JobPriority = "high"
)

// Rank orders priorities for scheduling: high > medium > low.
func (p JobPriority) Rank() int {
	switch p {
	case JobPriorityHigh:
		return 3
	case JobPriorityMedium:
		return 2
	case JobPriorityLow:
		return 1
	default:
		return 0
	}
}

// ProcessingJob is one persisted unit of pipeline work. Result and Error
// are mutually exclusive; both stay empty until the job reaches a
// terminal status.
type ProcessingJob struct {
	ID               string          `json:"id"`
	Type             JobType         `json:"type"`
	Data             json.RawMessage `json:"data"`
	Priority         JobPriority     `json:"priority"`
	TenantID         string          `json:"tenant_id,omitempty"`
	Status           JobStatus       `json:"status"`
	Result           json.RawMessage `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SentimentJobData is the payload for sentiment_analysis jobs.
type SentimentJobData struct {
	ConversationIDs []string `json:"conversation_ids"`
	Provider        string   `json:"provider,omitempty"`
}

// NormalizationJobData is the payload for content_normalization jobs.
type NormalizationJobData struct {
	ConversationIDs []string `json:"conversation_ids"`
}

// TrendJobData is the payload for trend_analysis jobs.
type TrendJobData struct {
	TenantID string    `json:"tenant_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

// NewProcessingJob validates type, priority and payload shape up front so
// handlers never see a malformed data blob.
func NewProcessingJob(jobType JobType, data json.RawMessage, priority JobPriority, tenantID string) (*ProcessingJob, error) {
	if priority == "" {
		priority = JobPriorityMedium
	}
	if priority.Rank() == 0 {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidArgument, priority)
	}
	if err := ValidateJobData(jobType, data); err != nil {
		return nil, err
	}
	now := time.Now()
	return &ProcessingJob{
		Type:      jobType,
		Data:      data,
		Priority:  priority,
		TenantID:  tenantID,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateJobData decodes data against the variant keyed by jobType and
// rejects payloads a handler could not act on.
func ValidateJobData(jobType JobType, data json.RawMessage) error {
	switch jobType {
	case JobTypeSentimentAnalysis:
		var d SentimentJobData
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("%w: sentiment payload: %v", domain.ErrInvalidArgument, err)
		}
		if len(d.ConversationIDs) == 0 {
			return fmt.Errorf("%w: sentiment payload needs conversation_ids", domain.ErrInvalidArgument)
		}
	case JobTypeContentNormalization:
		var d NormalizationJobData
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("%w: normalization payload: %v", domain.ErrInvalidArgument, err)
		}
		if len(d.ConversationIDs) == 0 {
			return fmt.Errorf("%w: normalization payload needs conversation_ids", domain.ErrInvalidArgument)
		}
	case JobTypeTrendAnalysis:
		var d TrendJobData
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("%w: trend payload: %v", domain.ErrInvalidArgument, err)
		}
		if d.TenantID == "" {
			return fmt.Errorf("%w: trend payload needs tenant_id", domain.ErrInvalidArgument)
		}
		if !d.To.After(d.From) {
			return fmt.Errorf("%w: trend payload time range is empty", domain.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedJobType, jobType)
	}
	return nil
}

// JobOutcome is the per-job entry inside a BatchProcessingResult.
type JobOutcome struct {
	JobID            string          `json:"job_id"`
	Result           json.RawMessage `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// BatchProcessingResult aggregates one dispatcher run. A run over an empty
// queue is a zero-valued result, not an error.
type BatchProcessingResult struct {
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []JobOutcome `json:"results"`
}
