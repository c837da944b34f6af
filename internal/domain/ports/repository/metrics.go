package repository

import (
	"context"

	"convmonitor/internal/domain/model"
)

type MetricsRepository interface {
	// Append inserts one metrics snapshot. Rows are never updated.
	Append(ctx context.Context, tx Tx, m *model.ProcessingMetrics) error
	ListRecent(ctx context.Context, tx Tx, metricsType string, limit int) ([]*model.ProcessingMetrics, error)
}
