package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

const jobColumns = `id, type, data, priority, tenant_id, status, result, error, processing_time_ms, created_at, updated_at`

func scanJob(row pgx.Row) (*model.ProcessingJob, error) {
	var j model.ProcessingJob
	var tenantID, jobErr *string
	var result []byte
	var procMs *int64
	err := row.Scan(&j.ID, &j.Type, &j.Data, &j.Priority, &tenantID,
		&j.Status, &result, &jobErr, &procMs, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tenantID != nil {
		j.TenantID = *tenantID
	}
	if jobErr != nil {
		j.Error = *jobErr
	}
	if result != nil {
		j.Result = result
	}
	if procMs != nil {
		j.ProcessingTimeMs = *procMs
	}
	return &j, nil
}

func (r *jobRepo) Create(ctx context.Context, tx repository.Tx, job *model.ProcessingJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.UpdatedAt = time.Now()

	const q = `
INSERT INTO processing_jobs (id, type, data, priority, tenant_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8);`

	_, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.Type, job.Data, job.Priority, job.TenantID, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert job: %v", domain.ErrPersistence, err)
	}
	return nil
}

// CreateBatch inserts all jobs inside one transaction so a single bad row
// leaves nothing behind.
func (r *jobRepo) CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, job := range jobs {
			if err := r.Create(ctx, tx, job); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *jobRepo) List(ctx context.Context, tx repository.Tx, filter repository.JobFilter) ([]*model.ProcessingJob, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Priority != "" {
		add("priority = $%d", filter.Priority)
	}
	if filter.TenantID != "" {
		add("tenant_id = $%d", filter.TenantID)
	}

	q := `SELECT ` + jobColumns + ` FROM processing_jobs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	jobs := make([]*model.ProcessingJob, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProcessingJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(row)
	if err != nil {
		return nil, translateScanErr(err)
	}
	return j, nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, upd repository.JobUpdate) error {
	const q = `
UPDATE processing_jobs SET
  status = $2,
  result = COALESCE($3, result),
  error = COALESCE(NULLIF($4, ''), error),
  processing_time_ms = COALESCE(NULLIF($5, 0), processing_time_ms),
  updated_at = $6
WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, upd.Status, upd.Result, upd.Error, upd.ProcessingTimeMs, time.Now())
	if err != nil {
		return fmt.Errorf("%w: update job status: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM processing_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete job: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimPending flips up to limit pending jobs to 'processing' in one
// transaction. SKIP LOCKED keeps concurrent dispatchers from claiming the
// same rows; the CASE ranks priority high > medium > low, ties broken by age.
func (r *jobRepo) ClaimPending(ctx context.Context, limit int) ([]*model.ProcessingJob, error) {
	var claimed []*model.ProcessingJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + jobColumns + `
FROM processing_jobs
WHERE status = 'pending'
ORDER BY CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
         created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED;`

		rows, err := pickRows(ctx, r.pool, tx, fetchQuery, limit)
		if err != nil {
			return fmt.Errorf("%w: claim fetch: %v", domain.ErrPersistence, err)
		}
		jobs := make([]*model.ProcessingJob, 0, limit)
		for rows.Next() {
			j, err := scanJob(rows)
			if err != nil {
				rows.Close()
				return domain.ErrReadDatabaseRow
			}
			jobs = append(jobs, j)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: claim fetch: %v", domain.ErrPersistence, err)
		}

		now := time.Now()
		for _, j := range jobs {
			_, err := execSQL(ctx, r.pool, tx,
				`UPDATE processing_jobs SET status = 'processing', updated_at = $2 WHERE id = $1`, j.ID, now)
			if err != nil {
				return fmt.Errorf("%w: claim mark: %v", domain.ErrPersistence, err)
			}
			j.Status = model.JobStatusProcessing
			j.UpdatedAt = now
		}
		claimed = jobs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) Stats(ctx context.Context) (*model.QueueStats, error) {
	stats := model.NewQueueStats()

	countBy := func(column string, into func(key string, n int)) error {
		q := fmt.Sprintf(`SELECT %s, COUNT(*) FROM processing_jobs GROUP BY %s`, column, column)
		rows, err := pickRows(ctx, r.pool, nil, q)
		if err != nil {
			return fmt.Errorf("%w: queue stats: %v", domain.ErrPersistence, err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				return domain.ErrReadDatabaseRow
			}
			into(key, n)
		}
		return rows.Err()
	}

	if err := countBy("status", func(k string, n int) { stats.ByStatus[model.JobStatus(k)] = n }); err != nil {
		return nil, err
	}
	if err := countBy("type", func(k string, n int) { stats.ByType[model.JobType(k)] = n }); err != nil {
		return nil, err
	}
	if err := countBy("priority", func(k string, n int) { stats.ByPriority[model.JobPriority(k)] = n }); err != nil {
		return nil, err
	}

	row, err := pickRow(ctx, r.pool, nil,
		`SELECT COALESCE(AVG(processing_time_ms), 0) FROM processing_jobs WHERE status = 'completed' AND processing_time_ms IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&stats.AvgProcessingTimeMs); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return stats, nil
}
