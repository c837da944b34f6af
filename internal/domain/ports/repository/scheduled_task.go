package repository

import (
	"context"
	"time"

	"convmonitor/internal/domain/model"
)

type ScheduledTaskRepository interface {
	Save(ctx context.Context, tx Tx, task *model.ScheduledTask) error
	List(ctx context.Context, tx Tx) ([]*model.ScheduledTask, error)
	FindDue(ctx context.Context, now time.Time) ([]*model.ScheduledTask, error)
	// MarkRan advances next_run_at after the task's job was enqueued.
	MarkRan(ctx context.Context, tx Tx, id string, nextRunAt time.Time) error
	SetEnabled(ctx context.Context, tx Tx, id string, enabled bool) error
	Delete(ctx context.Context, tx Tx, id string) error
}
