package trend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
)

var _ adapter.TrendAnalyzer = (*SQLAnalyzer)(nil)

// SQLAnalyzer computes daily sentiment counts straight from the
// conversations table. The trend_analysis handler passes its output
// through untouched.
type SQLAnalyzer struct {
	pool *pgxpool.Pool
}

func NewSQLAnalyzer(pool *pgxpool.Pool) *SQLAnalyzer {
	return &SQLAnalyzer{pool: pool}
}

func (a *SQLAnalyzer) Analyze(ctx context.Context, tenantID string, from, to time.Time) (*model.TrendReport, error) {
	const q = `
SELECT date_trunc('day', created_at) AS day,
       COUNT(*),
       COUNT(*) FILTER (WHERE sentiment = 'positive'),
       COUNT(*) FILTER (WHERE sentiment = 'negative'),
       COUNT(*) FILTER (WHERE sentiment = 'neutral')
FROM conversations
WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
GROUP BY day
ORDER BY day;`

	rows, err := a.pool.Query(ctx, q, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: trend query: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	report := &model.TrendReport{TenantID: tenantID, From: from, To: to, Points: []model.TrendPoint{}}
	for rows.Next() {
		var pt model.TrendPoint
		if err := rows.Scan(&pt.Day, &pt.Total, &pt.Positive, &pt.Negative, &pt.Neutral); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		report.Points = append(report.Points, pt)
	}
	return report, rows.Err()
}
