package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TaskRunner is the minimal interface the runner needs from the scheduled
// task use case. Any type implementing RunDue can be passed.
type TaskRunner interface {
	// RunDue enqueues jobs for every enabled task whose next run is at or
	// before now, and returns how many jobs were created.
	RunDue(ctx context.Context, now time.Time) (int, error)
}

// Runner periodically fires due scheduled tasks.
type Runner struct {
	interval time.Duration
	tasks    TaskRunner
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner constructs a runner that calls tasks.RunDue every `interval`.
// If interval <= 0 it defaults to 1 minute.
func NewRunner(interval time.Duration, tasks TaskRunner, logger *zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	return &Runner{
		interval: interval,
		tasks:    tasks,
		log:      &l,
		done:     make(chan struct{}),
	}
}

// Start begins the runner loop in a background goroutine. Calling Start
// more than once has no effect.
func (r *Runner) Start(parentCtx context.Context) {
	if r.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	r.ctx = ctx
	r.cancel = cancel

	go r.loop()
}

func (r *Runner) loop() {
	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		close(r.done)
	}()

	r.log.Info().Dur("interval", r.interval).Msg("scheduler started")
	for {
		select {
		case <-r.ctx.Done():
			r.log.Info().Msg("scheduler stopping")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
			func() {
				defer cancel()
				enqueued, err := r.tasks.RunDue(runCtx, time.Now())
				if err != nil {
					r.log.Error().Err(err).Msg("scheduled task run failed")
					return
				}
				if enqueued > 0 {
					r.log.Info().Int("enqueued", enqueued).Msg("scheduled tasks enqueued jobs")
				}
			}()
		}
	}
}

// Stop cancels the runner and waits for the loop to finish. It is idempotent.
func (r *Runner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.ctx = nil
	r.cancel = nil
	r.done = make(chan struct{})
}
