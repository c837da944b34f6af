package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

var _ repository.MetricsRepository = (*metricsRepo)(nil)

type metricsRepo struct {
	pool *pgxpool.Pool
}

func NewMetricsRepo(pool *pgxpool.Pool) *metricsRepo {
	return &metricsRepo{pool: pool}
}

func (r *metricsRepo) Append(ctx context.Context, tx repository.Tx, m *model.ProcessingMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO processing_metrics (id, type, metrics, created_at)
VALUES ($1, $2, $3, $4);`

	if _, err := execSQL(ctx, r.pool, tx, q, m.ID, m.Type, m.Metrics, m.CreatedAt); err != nil {
		return fmt.Errorf("%w: append metrics: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *metricsRepo) ListRecent(ctx context.Context, tx repository.Tx, metricsType string, limit int) ([]*model.ProcessingMetrics, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, type, metrics, created_at
FROM processing_metrics
WHERE type = $1
ORDER BY created_at DESC
LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, tx, q, metricsType, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list metrics: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]*model.ProcessingMetrics, 0, limit)
	for rows.Next() {
		var m model.ProcessingMetrics
		if err := rows.Scan(&m.ID, &m.Type, &m.Metrics, &m.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
