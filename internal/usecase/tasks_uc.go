package usecase

import (
	"context"
	"encoding/json"
	"time"

	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ScheduledTaskUseCase = (*taskUC)(nil)

type ScheduledTaskUseCase interface {
	Create(ctx context.Context, name string, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string, interval time.Duration) (*model.ScheduledTask, error)
	List(ctx context.Context) ([]*model.ScheduledTask, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
	// RunDue enqueues a job for every task whose next_run_at has passed and
	// advances its schedule. Returns the number of jobs enqueued.
	RunDue(ctx context.Context, now time.Time) (int, error)
}

type taskUC struct {
	tasks repository.ScheduledTaskRepository
	jobs  repository.JobRepository
	log   *zerolog.Logger
}

func NewScheduledTaskUseCase(tasks repository.ScheduledTaskRepository, jobs repository.JobRepository, logger *zerolog.Logger) *taskUC {
	l := logger.With().Str("component", "TaskUC").Logger()
	return &taskUC{tasks: tasks, jobs: jobs, log: &l}
}

func (u *taskUC) Create(ctx context.Context, name string, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string, interval time.Duration) (*model.ScheduledTask, error) {
	task, err := model.NewScheduledTask(name, jobType, data, priority, tenantID, interval)
	if err != nil {
		return nil, err
	}
	if err := u.tasks.Save(ctx, repository.NoTX, task); err != nil {
		return nil, err
	}
	u.log.Info().Str("task_id", task.ID).Str("name", task.Name).Dur("interval", task.Interval).Msg("scheduled task created")
	return task, nil
}

func (u *taskUC) List(ctx context.Context) ([]*model.ScheduledTask, error) {
	return u.tasks.List(ctx, repository.NoTX)
}

func (u *taskUC) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return u.tasks.SetEnabled(ctx, repository.NoTX, id, enabled)
}

func (u *taskUC) Delete(ctx context.Context, id string) error {
	return u.tasks.Delete(ctx, repository.NoTX, id)
}

func (u *taskUC) RunDue(ctx context.Context, now time.Time) (int, error) {
	due, err := u.tasks.FindDue(ctx, now)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, task := range due {
		job, err := model.NewProcessingJob(task.Type, task.Data, task.Priority, task.TenantID)
		if err != nil {
			// A task whose template went stale must not block the others.
			u.log.Error().Err(err).Str("task_id", task.ID).Msg("task template invalid, skipping")
			continue
		}
		if err := u.jobs.Create(ctx, repository.NoTX, job); err != nil {
			u.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to enqueue task job")
			continue
		}
		if err := u.tasks.MarkRan(ctx, repository.NoTX, task.ID, now.Add(task.Interval)); err != nil {
			u.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to advance task schedule")
			continue
		}
		enqueued++
		u.log.Info().Str("task_id", task.ID).Str("job_id", job.ID).Msg("scheduled task enqueued job")
	}
	return enqueued, nil
}
