package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airbridge/airbridge/internal/relay"
	"github.com/airbridge/airbridge/internal/uploader"
)

// Runner executes the relay job once per hour. Each invocation is
// independent: it starts unauthenticated and shares no state with the
// previous one, exactly as the one-shot binary does.
type Runner struct {
	job     *relay.Job
	config  Config
	logger  zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

// RunnerConfig holds dependencies for a Runner.
type RunnerConfig struct {
	Job     *relay.Job
	Config  Config
	Logger  zerolog.Logger
	Metrics *Metrics

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		job:     cfg.Job,
		config:  cfg.Config,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// NextTick returns the first instant after now that lies the configured
// offset past the top of an hour.
func (r *Runner) NextTick(now time.Time) time.Time {
	top := now.Truncate(time.Hour)
	tick := top.Add(r.config.TickOffset)
	if !tick.After(now) {
		tick = tick.Add(time.Hour)
	}
	return tick
}

// Start runs the hourly loop until ctx is cancelled. A run in progress
// is not interrupted by cancellation; the loop stops scheduling new
// runs.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info().
		Dur("tick_offset", r.config.TickOffset).
		Msg("worker started")

	for {
		next := r.NextTick(r.now())
		wait := time.Until(next)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info().Msg("worker stopping")
			return
		case <-timer.C:
		}

		r.RunOnce(context.Background())
	}
}

// RunOnce executes a single relay invocation with its own run ID,
// timeout, and metrics.
func (r *Runner) RunOnce(ctx context.Context) {
	runID := uuid.New().String()
	logger := r.logger.With().Str("run_id", runID).Logger()

	runCtx, cancel := context.WithTimeout(ctx, r.config.RunTimeout)
	defer cancel()

	start := r.now()
	outcome, err := r.job.Run(runCtx)
	duration := time.Since(start)

	label, class := classify(outcome, err)
	if r.metrics != nil {
		r.metrics.ObserveRun(label, class, duration)
	}

	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Str("outcome", label).
		Dur("duration", duration).
		Msg("relay invocation completed")
}

// classify maps a run result to metric labels.
func classify(outcome *uploader.Outcome, err error) (label, errorClass string) {
	if err != nil {
		return "failed", relay.ErrorClass(err)
	}
	if outcome != nil && outcome.State == uploader.StateSkipped {
		return "skipped", ""
	}
	return "succeeded", ""
}
