package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

var _ repository.ScheduledTaskRepository = (*taskRepo)(nil)

type taskRepo struct {
	pool *pgxpool.Pool
}

func NewScheduledTaskRepo(pool *pgxpool.Pool) *taskRepo {
	return &taskRepo{pool: pool}
}

const taskColumns = `id, name, type, data, priority, tenant_id, interval_seconds, enabled, next_run_at, created_at, updated_at`

func scanTask(row pgx.Row) (*model.ScheduledTask, error) {
	var t model.ScheduledTask
	var tenantID *string
	var intervalSec int64
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Data, &t.Priority, &tenantID,
		&intervalSec, &t.Enabled, &t.NextRunAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tenantID != nil {
		t.TenantID = *tenantID
	}
	t.Interval = time.Duration(intervalSec) * time.Second
	return &t, nil
}

func (r *taskRepo) Save(ctx context.Context, tx repository.Tx, task *model.ScheduledTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.UpdatedAt = time.Now()

	const q = `
INSERT INTO scheduled_tasks (id, name, type, data, priority, tenant_id, interval_seconds, enabled, next_run_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  data = EXCLUDED.data,
  priority = EXCLUDED.priority,
  interval_seconds = EXCLUDED.interval_seconds,
  enabled = EXCLUDED.enabled,
  next_run_at = EXCLUDED.next_run_at,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		task.ID, task.Name, task.Type, task.Data, task.Priority, task.TenantID,
		int64(task.Interval/time.Second), task.Enabled, task.NextRunAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: save task: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *taskRepo) List(ctx context.Context, tx repository.Tx) ([]*model.ScheduledTask, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepo) FindDue(ctx context.Context, now time.Time) ([]*model.ScheduledTask, error) {
	const q = `
SELECT ` + taskColumns + `
FROM scheduled_tasks
WHERE enabled AND next_run_at <= $1
ORDER BY next_run_at ASC;`

	rows, err := pickRows(ctx, r.pool, nil, q, now)
	if err != nil {
		return nil, fmt.Errorf("%w: find due tasks: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*model.ScheduledTask, error) {
	out := make([]*model.ScheduledTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *taskRepo) MarkRan(ctx context.Context, tx repository.Tx, id string, nextRunAt time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE scheduled_tasks SET next_run_at = $2, updated_at = $3 WHERE id = $1`, id, nextRunAt, time.Now())
	if err != nil {
		return fmt.Errorf("%w: mark task ran: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepo) SetEnabled(ctx context.Context, tx repository.Tx, id string, enabled bool) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE scheduled_tasks SET enabled = $2, updated_at = $3 WHERE id = $1`, id, enabled, time.Now())
	if err != nil {
		return fmt.Errorf("%w: set task enabled: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete task: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
