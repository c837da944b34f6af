package repository

import (
	"context"

	"convmonitor/internal/domain/model"
)

// JobFilter narrows List results. Zero values mean "no constraint".
type JobFilter struct {
	Status   model.JobStatus
	Type     model.JobType
	Priority model.JobPriority
	TenantID string
	Limit    int
	Offset   int
}

// JobUpdate is a partial status update. Result and Error are applied only
// when non-nil / non-empty and are mutually exclusive.
type JobUpdate struct {
	Status           model.JobStatus
	Result           []byte
	Error            string
	ProcessingTimeMs int64
}

type JobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.ProcessingJob) error
	// CreateBatch inserts all jobs atomically; no partial inserts survive a failure.
	CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) error
	List(ctx context.Context, tx Tx, filter JobFilter) ([]*model.ProcessingJob, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.ProcessingJob, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, upd JobUpdate) error
	Delete(ctx context.Context, tx Tx, id string) error
	// ClaimPending atomically selects up to limit pending jobs ordered by
	// priority (high first) then created_at (oldest first) and flips them to
	// 'processing', skipping rows locked by concurrent dispatchers.
	ClaimPending(ctx context.Context, limit int) ([]*model.ProcessingJob, error)
	Stats(ctx context.Context) (*model.QueueStats, error)
}
