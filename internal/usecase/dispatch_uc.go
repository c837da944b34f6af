package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
	"convmonitor/internal/infra/logging"
	"convmonitor/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ DispatchUseCase = (*dispatchUC)(nil)

type DispatchUseCase interface {
	// ProcessBatch claims up to batchSize pending jobs and runs them
	// sequentially. batchSize 0 means the configured default.
	ProcessBatch(ctx context.Context, batchSize int) (*model.BatchProcessingResult, error)
}

// DispatchLocker is the subset of the redis locker the dispatcher needs.
type DispatchLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

const dispatchLockKey = "dispatch:batch"

type DispatchConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
	LockTTL          time.Duration
}

type dispatchUC struct {
	jobs     repository.JobRepository
	handlers *HandlerRegistry
	locker   DispatchLocker
	cfg      DispatchConfig
	log      *zerolog.Logger
}

func NewDispatchUseCase(jobs repository.JobRepository, handlers *HandlerRegistry, locker DispatchLocker, cfg DispatchConfig, logger *zerolog.Logger) *dispatchUC {
	if cfg.DefaultBatchSize <= 0 {
		cfg.DefaultBatchSize = 10
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	l := logger.With().Str("component", "DispatchUC").Logger()
	return &dispatchUC{jobs: jobs, handlers: handlers, locker: locker, cfg: cfg, log: &l}
}

func (u *dispatchUC) ProcessBatch(ctx context.Context, batchSize int) (*model.BatchProcessingResult, error) {
	defer logging.TraceDuration(u.log, "DispatchUC.ProcessBatch")()

	if batchSize == 0 {
		batchSize = u.cfg.DefaultBatchSize
	}
	if batchSize < 1 || batchSize > u.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: batch_size must be in [1,%d]", domain.ErrInvalidArgument, u.cfg.MaxBatchSize)
	}

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, dispatchLockKey, u.cfg.LockTTL)
		if err != nil {
			if err == domain.ErrDispatchBusy {
				metrics.IncDispatchRun("busy")
				return nil, err
			}
			return nil, fmt.Errorf("dispatch lock: %w", err)
		}
		defer func() { _ = u.locker.Unlock(context.Background(), dispatchLockKey, token) }()
	}

	jobs, err := u.jobs.ClaimPending(ctx, batchSize)
	if err != nil {
		metrics.IncDispatchRun("error")
		return nil, err
	}

	result := &model.BatchProcessingResult{Results: make([]model.JobOutcome, 0, len(jobs))}
	if len(jobs) == 0 {
		metrics.IncDispatchRun("ok")
		return result, nil
	}

	u.log.Info().Int("claimed", len(jobs)).Msg("processing batch")
	for _, job := range jobs {
		outcome, err := u.processOne(ctx, job)
		if err != nil {
			// Recording an outcome failed; there is no safe local recovery.
			metrics.IncDispatchRun("error")
			return nil, err
		}
		result.Processed++
		if outcome.Error == "" {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, outcome)
	}

	metrics.IncDispatchRun("ok")
	u.log.Info().Int("processed", result.Processed).Int("successful", result.Successful).Int("failed", result.Failed).Msg("batch finished")
	return result, nil
}

// processOne runs a claimed job to a terminal state. Handler errors and
// panics become the job's error field; only the persistence of the outcome
// itself can return an error here.
func (u *dispatchUC) processOne(ctx context.Context, job *model.ProcessingJob) (model.JobOutcome, error) {
	if job.TenantID != "" {
		ctx = logging.WithTenantID(ctx, job.TenantID)
	}
	ctx = logging.WithJobID(ctx, job.ID)
	log := logging.With(ctx, u.log)

	start := time.Now()
	payload, handlerErr := u.runHandler(ctx, job)
	elapsedMs := time.Since(start).Milliseconds()

	outcome := model.JobOutcome{JobID: job.ID, ProcessingTimeMs: elapsedMs}
	upd := repository.JobUpdate{ProcessingTimeMs: elapsedMs}
	status := model.JobStatusCompleted
	if handlerErr != nil {
		status = model.JobStatusFailed
		upd.Error = handlerErr.Error()
		outcome.Error = handlerErr.Error()
		log.Error().Err(handlerErr).Str("type", string(job.Type)).Msg("job failed")
	} else {
		upd.Result = payload
		outcome.Result = payload
	}
	upd.Status = status

	metrics.IncJobProcessed(string(job.Type), string(status))
	metrics.ObserveHandlerLatency(string(job.Type), elapsedMs)

	if err := u.jobs.UpdateStatus(ctx, repository.NoTX, job.ID, upd); err != nil {
		return outcome, fmt.Errorf("record outcome for job %s: %w", job.ID, err)
	}
	log.Info().Str("status", string(status)).Int64("duration_ms", elapsedMs).Msg("job finished")
	return outcome, nil
}

func (u *dispatchUC) runHandler(ctx context.Context, job *model.ProcessingJob) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, err := u.handlers.Lookup(job.Type)
	if err != nil {
		return nil, err
	}
	return handler.Handle(ctx, job)
}
