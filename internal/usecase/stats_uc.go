package usecase

import (
	"context"

	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ QueueStatsUseCase = (*statsUC)(nil)

type QueueStatsUseCase interface {
	GetQueueStats(ctx context.Context) (*model.QueueStats, error)
	RecentBatchMetrics(ctx context.Context, limit int) ([]*model.ProcessingMetrics, error)
}

type statsUC struct {
	jobs    repository.JobRepository
	metrics repository.MetricsRepository
	log     *zerolog.Logger
}

func NewQueueStatsUseCase(jobs repository.JobRepository, metrics repository.MetricsRepository, logger *zerolog.Logger) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{jobs: jobs, metrics: metrics, log: &l}
}

func (u *statsUC) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	return u.jobs.Stats(ctx)
}

func (u *statsUC) RecentBatchMetrics(ctx context.Context, limit int) ([]*model.ProcessingMetrics, error) {
	return u.metrics.ListRecent(ctx, repository.NoTX, "sentiment_batch", limit)
}
