package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	Create(ctx context.Context, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string) (*model.ProcessingJob, error)
	CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) ([]*model.ProcessingJob, error)
	List(ctx context.Context, filter repository.JobFilter) ([]*model.ProcessingJob, error)
	Get(ctx context.Context, id string) (*model.ProcessingJob, error)
	UpdateStatus(ctx context.Context, id string, upd repository.JobUpdate) error
	Delete(ctx context.Context, id string) error
}

type jobUC struct {
	jobs repository.JobRepository
	log  *zerolog.Logger
}

func NewJobUseCase(jobs repository.JobRepository, logger *zerolog.Logger) *jobUC {
	l := logger.With().Str("component", "JobUC").Logger()
	return &jobUC{jobs: jobs, log: &l}
}

func (u *jobUC) Create(ctx context.Context, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string) (*model.ProcessingJob, error) {
	job, err := model.NewProcessingJob(jobType, data, priority, tenantID)
	if err != nil {
		return nil, err
	}
	if err := u.jobs.Create(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", job.ID).Str("type", string(job.Type)).Str("priority", string(job.Priority)).Msg("job created")
	return job, nil
}

func (u *jobUC) CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) ([]*model.ProcessingJob, error) {
	for _, j := range jobs {
		if err := model.ValidateJobData(j.Type, j.Data); err != nil {
			return nil, err
		}
	}
	if err := u.jobs.CreateBatch(ctx, jobs); err != nil {
		return nil, err
	}
	u.log.Info().Int("count", len(jobs)).Msg("job batch created")
	return jobs, nil
}

const maxListLimit = 500

func (u *jobUC) List(ctx context.Context, filter repository.JobFilter) ([]*model.ProcessingJob, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return u.jobs.List(ctx, repository.NoTX, filter)
}

func (u *jobUC) Get(ctx context.Context, id string) (*model.ProcessingJob, error) {
	return u.jobs.FindByID(ctx, repository.NoTX, id)
}

// UpdateStatus applies a caller-driven status change. Repeating an update
// that already took effect is a no-op, so retried calls are idempotent.
func (u *jobUC) UpdateStatus(ctx context.Context, id string, upd repository.JobUpdate) error {
	if upd.Result != nil && upd.Error != "" {
		return fmt.Errorf("%w: result and error are mutually exclusive", domain.ErrInvalidArgument)
	}
	switch upd.Status {
	case model.JobStatusCompleted:
		if upd.Error != "" {
			return fmt.Errorf("%w: completed job cannot carry an error", domain.ErrInvalidArgument)
		}
	case model.JobStatusFailed:
		if upd.Result != nil {
			return fmt.Errorf("%w: failed job cannot carry a result", domain.ErrInvalidArgument)
		}
	case model.JobStatusPending, model.JobStatusProcessing:
	default:
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, upd.Status)
	}

	job, err := u.jobs.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if job.Status == upd.Status {
		if upd.Status.Terminal() && bytes.Equal(job.Result, upd.Result) && job.Error == upd.Error {
			return nil
		}
	}
	if job.Status != upd.Status && !job.Status.CanTransitionTo(upd.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, job.Status, upd.Status)
	}
	return u.jobs.UpdateStatus(ctx, repository.NoTX, id, upd)
}

func (u *jobUC) Delete(ctx context.Context, id string) error {
	return u.jobs.Delete(ctx, repository.NoTX, id)
}
