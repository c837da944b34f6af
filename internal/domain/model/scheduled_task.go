package model

import (
	"encoding/json"
	"fmt"
	"time"

	"convmonitor/internal/domain"
)

// ScheduledTask is a recurring-trigger definition. It is not itself a
// job; when due, the scheduler enqueues a fresh ProcessingJob from its
// template fields.
type ScheduledTask struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      JobType         `json:"type"`
	Data      json.RawMessage `json:"data"`
	Priority  JobPriority     `json:"priority"`
	TenantID  string          `json:"tenant_id,omitempty"`
	Interval  time.Duration   `json:"interval_seconds"`
	Enabled   bool            `json:"enabled"`
	NextRunAt time.Time       `json:"next_run_at"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewScheduledTask(name string, jobType JobType, data json.RawMessage, priority JobPriority, tenantID string, interval time.Duration) (*ScheduledTask, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: task name is required", domain.ErrInvalidArgument)
	}
	if interval < time.Minute {
		return nil, fmt.Errorf("%w: task interval below one minute", domain.ErrInvalidArgument)
	}
	if priority == "" {
		priority = JobPriorityMedium
	}
	if err := ValidateJobData(jobType, data); err != nil {
		return nil, err
	}
	now := time.Now()
	return &ScheduledTask{
		Name:      name,
		Type:      jobType,
		Data:      data,
		Priority:  priority,
		TenantID:  tenantID,
		Interval:  interval,
		Enabled:   true,
		NextRunAt: now.Add(interval),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Due reports whether the task should fire at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRunAt.After(now)
}
