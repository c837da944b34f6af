package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"convmonitor/internal/domain"
	"convmonitor/internal/usecase"
)

// DispatchWorker polls the queue and drains pending jobs in batches. It is
// the background counterpart of the manual batch endpoint; both go through
// the same use case, so the dispatch lock keeps them from overlapping.
type DispatchWorker struct {
	dispatch  usecase.DispatchUseCase
	interval  time.Duration
	batchSize int
	log       *zerolog.Logger
}

func NewDispatchWorker(dispatch usecase.DispatchUseCase, interval time.Duration, batchSize int, logger *zerolog.Logger) *DispatchWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	l := logger.With().Str("component", "DispatchWorker").Logger()
	return &DispatchWorker{dispatch: dispatch, interval: interval, batchSize: batchSize, log: &l}
}

// Start runs the polling loop until ctx is cancelled.
// This should be run in a goroutine.
func (w *DispatchWorker) Start(ctx context.Context, pool *Pool) {
	w.log.Info().Dur("interval", w.interval).Int("batch_size", w.batchSize).Msg("dispatch worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("dispatch worker stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				w.runOnce(ctx)
				return nil
			})
		}
	}
}

func (w *DispatchWorker) runOnce(ctx context.Context) {
	res, err := w.dispatch.ProcessBatch(ctx, w.batchSize)
	if err != nil {
		if errors.Is(err, domain.ErrDispatchBusy) {
			w.log.Debug().Msg("dispatch already running, skipping tick")
			return
		}
		w.log.Error().Err(err).Msg("batch dispatch failed")
		return
	}
	if res.Processed > 0 {
		w.log.Info().
			Int("processed", res.Processed).
			Int("successful", res.Successful).
			Int("failed", res.Failed).
			Msg("batch dispatched")
	}
}
