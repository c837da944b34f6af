package adapter

import (
	"context"
	"time"

	"convmonitor/internal/domain/model"
)

// TrendAnalyzer computes sentiment trends for a tenant over a time range.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, tenantID string, from, to time.Time) (*model.TrendReport, error)
}
