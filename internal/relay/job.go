package relay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/airbridge/airbridge/internal/feed"
	"github.com/airbridge/airbridge/internal/meteo"
	"github.com/airbridge/airbridge/internal/reading"
	"github.com/airbridge/airbridge/internal/uploader"
)

// Exit codes: success and intentional skip are both 0; every error kind
// is 1.
const (
	ExitOK    = 0
	ExitError = 1
)

// Fetcher retrieves the reading for the hour preceding now.
// *feed.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, now time.Time) (*reading.Reading, error)
}

// Job runs the pipeline once: fetch, then upload.
type Job struct {
	fetcher  Fetcher
	uploader *uploader.Uploader
	logger   zerolog.Logger
	now      func() time.Time
}

// JobConfig holds dependencies for a Job.
type JobConfig struct {
	Fetcher  Fetcher
	Uploader *uploader.Uploader
	Logger   zerolog.Logger

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewJob assembles a job from already-built components.
func NewJob(cfg JobConfig) *Job {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Job{
		fetcher:  cfg.Fetcher,
		uploader: cfg.Uploader,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Build constructs the job with real clients from configuration.
func Build(cfg Config, logger zerolog.Logger) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fetcher := feed.NewClient(feed.ClientConfig{
		BaseURL: cfg.FeedBaseURL,
		Timeout: cfg.HTTPTimeout,
		Zone:    cfg.Zone(),
	})

	dest, err := meteo.NewClient(meteo.ClientConfig{
		BaseURL:     cfg.MeteoBaseURL,
		Credentials: meteo.Credentials{Account: cfg.Account, Password: cfg.Password},
		Timeout:     cfg.HTTPTimeout,
		WindowSize:  cfg.WindowSize,
	})
	if err != nil {
		return nil, err
	}

	up := uploader.New(uploader.Config{
		Destination: dest,
		Logger:      logger,
	})

	return NewJob(JobConfig{
		Fetcher:  fetcher,
		Uploader: up,
		Logger:   logger,
	}), nil
}

// Run executes one invocation. The returned outcome is nil when the
// fetch itself failed; err is nil exactly when the invocation succeeded
// or skipped a duplicate.
func (j *Job) Run(ctx context.Context) (*uploader.Outcome, error) {
	r, err := j.fetcher.Fetch(ctx, j.now())
	if err != nil {
		j.logger.Error().
			Err(err).
			Str("class", ErrorClass(err)).
			Msg("fetch failed")
		return nil, err
	}

	j.logger.Info().
		Str("detected_at_utc", r.DetectedAtUTC).
		Msg("prepared reading")

	outcome, err := j.uploader.Upload(ctx, r)
	switch outcome.State {
	case uploader.StateSucceeded:
		j.logger.Info().
			Str("status", "ok").
			Str("detected_at_utc", outcome.DetectedAtUTC).
			Msg("reading uploaded")
	case uploader.StateSkipped:
		j.logger.Info().
			Str("status", "skip").
			Str("detected_at_utc", outcome.DetectedAtUTC).
			Msg("duplicate reading, upload skipped")
	default:
		j.logger.Error().
			Err(err).
			Str("class", ErrorClass(err)).
			Str("detected_at_utc", outcome.DetectedAtUTC).
			Msg("upload failed")
	}
	return outcome, err
}

// ExitCode maps a terminal outcome deterministically to the process exit
// code.
func ExitCode(outcome *uploader.Outcome, err error) int {
	if err != nil {
		return ExitError
	}
	if outcome == nil {
		return ExitError
	}
	switch outcome.State {
	case uploader.StateSucceeded, uploader.StateSkipped:
		return ExitOK
	default:
		return ExitError
	}
}

// ErrorClass names the error kind for log lines and metrics labels.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}

	var (
		feedErr    *feed.FeedError
		missingErr *reading.MissingFieldError
		blankErr   *reading.BlankFieldError
		authErr    *meteo.AuthError
		queryErr   *meteo.QueryError
		uploadErr  *meteo.UploadError
	)
	switch {
	case errors.Is(err, feed.ErrNoData):
		return "no_data"
	case errors.As(err, &feedErr):
		return "feed_unavailable"
	case errors.As(err, &missingErr):
		return "missing_field"
	case errors.As(err, &blankErr):
		return "blank_field"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &queryErr):
		return "query"
	case errors.As(err, &uploadErr):
		return "upload"
	default:
		return "internal"
	}
}
