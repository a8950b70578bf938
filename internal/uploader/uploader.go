package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/airbridge/airbridge/internal/meteo"
	"github.com/airbridge/airbridge/internal/reading"
)

// reauthBudget is the number of re-authentication cycles allowed per
// invocation. A second authorization failure is terminal.
const reauthBudget = 1

// Destination is the destination storage API as the uploader sees it.
// *meteo.Client implements it.
type Destination interface {
	// Login authenticates and installs a fresh session.
	Login(ctx context.Context) (*meteo.Session, error)

	// ListLatest returns the dedupe window, newest first.
	ListLatest(ctx context.Context) ([]meteo.Record, error)

	// Create stores one reading payload.
	Create(ctx context.Context, payload map[string]any) error

	// WindowSize is the configured dedupe window size.
	WindowSize() int
}

// Config holds configuration for the uploader.
type Config struct {
	Destination Destination
	Logger      zerolog.Logger
}

// Uploader submits one validated reading per invocation.
type Uploader struct {
	dest   Destination
	logger zerolog.Logger
}

// New creates an uploader.
func New(cfg Config) *Uploader {
	return &Uploader{
		dest:   cfg.Destination,
		logger: cfg.Logger,
	}
}

// Outcome describes how an upload run terminated.
type Outcome struct {
	// State is the terminal state: Succeeded, Skipped, or Failed.
	State State

	// DetectedAtUTC is the normalized dedup key of the reading, when it
	// could be derived.
	DetectedAtUTC string

	// Trace is the sequence of states the machine passed through,
	// including the terminal one.
	Trace []State
}

// run carries the mutable context of one pass through the machine.
type run struct {
	reading *reading.Reading
	payload map[string]any
	target  string // normalized dedup key
	reauths int
	err     error
}

// Upload drives the reading through the state machine. The returned
// outcome always has a terminal state; err is nil exactly when the state
// is Succeeded or Skipped.
func (u *Uploader) Upload(ctx context.Context, r *reading.Reading) (*Outcome, error) {
	rn := &run{reading: r}
	outcome := &Outcome{}

	state := StateStart
	outcome.Trace = append(outcome.Trace, state)

	for !state.terminal() {
		next := u.step(ctx, state, rn)
		u.logger.Debug().
			Stringer("from", state).
			Stringer("to", next).
			Msg("upload transition")
		state = next
		outcome.Trace = append(outcome.Trace, state)
	}

	outcome.State = state
	outcome.DetectedAtUTC = rn.target
	if state == StateFailed {
		return outcome, rn.err
	}
	return outcome, nil
}

// step runs the transition out of state and returns the next state.
func (u *Uploader) step(ctx context.Context, state State, rn *run) State {
	switch state {
	case StateStart:
		return u.stepValidate(rn)
	case StateValidated:
		return u.stepLogin(ctx, rn)
	case StateAuthenticated:
		return u.stepDedupe(ctx, rn)
	case StateDedupeChecked:
		return StateSubmitting
	case StateSubmitting:
		return u.stepSubmit(ctx, rn)
	case StateReauthRetry:
		return u.stepRelogin(ctx, rn)
	default:
		rn.err = fmt.Errorf("no transition out of state %s", state)
		return StateFailed
	}
}

// stepValidate checks the reading and derives the normalized dedup key.
// It runs before any network interaction with the destination so bad
// data never costs a login.
func (u *Uploader) stepValidate(rn *run) State {
	if err := reading.Validate(rn.reading); err != nil {
		rn.err = err
		return StateFailed
	}

	target, err := reading.NormalizeUTC(rn.reading.DetectedAtUTC)
	if err != nil {
		rn.err = fmt.Errorf("normalize detection timestamp: %w", err)
		return StateFailed
	}

	rn.target = target
	rn.payload = rn.reading.Payload()
	return StateValidated
}

func (u *Uploader) stepLogin(ctx context.Context, rn *run) State {
	if _, err := u.dest.Login(ctx); err != nil {
		rn.err = err
		return StateFailed
	}
	return StateAuthenticated
}

// stepDedupe re-fetches the recent-records window and tests membership
// of the dedup key. The window is re-fetched on every pass, including
// after a reauth, because a prior submission may have partially
// succeeded server-side before the session was invalidated.
func (u *Uploader) stepDedupe(ctx context.Context, rn *run) State {
	rows, err := u.dest.ListLatest(ctx)
	if err != nil {
		var authErr *meteo.AuthError
		if errors.As(err, &authErr) && rn.reauths < reauthBudget {
			rn.reauths++
			u.logger.Warn().
				Int("status", authErr.StatusCode).
				Msg("list rejected for authorization, re-authenticating once")
			return StateReauthRetry
		}
		rn.err = err
		return StateFailed
	}

	u.warnOnWindowGap(rows, rn.target)

	for _, row := range rows {
		normalized, err := reading.NormalizeUTC(row.DetectedAtUTC)
		if err != nil {
			// Rows the destination stored in an unexpected format cannot
			// match; skip them rather than failing the run.
			continue
		}
		if normalized == rn.target {
			return StateSkipped
		}
	}
	return StateDedupeChecked
}

func (u *Uploader) stepSubmit(ctx context.Context, rn *run) State {
	err := u.dest.Create(ctx, rn.payload)
	if err == nil {
		return StateSucceeded
	}

	var authErr *meteo.AuthError
	if errors.As(err, &authErr) {
		if rn.reauths < reauthBudget {
			rn.reauths++
			u.logger.Warn().
				Int("status", authErr.StatusCode).
				Msg("submit rejected for authorization, re-authenticating once")
			return StateReauthRetry
		}
		// Retry exhausted: a persisting 401/403 is an upload failure.
		rn.err = &meteo.UploadError{
			StatusCode: authErr.StatusCode,
			Message:    "authorization rejected after re-login",
		}
		return StateFailed
	}

	rn.err = err
	return StateFailed
}

// stepRelogin performs the fresh login of the single reauth cycle; the
// machine then re-enters the dedupe check.
func (u *Uploader) stepRelogin(ctx context.Context, rn *run) State {
	if _, err := u.dest.Login(ctx); err != nil {
		rn.err = err
		return StateFailed
	}
	return StateAuthenticated
}

// warnOnWindowGap flags the unspecified case where more hours separate
// the candidate from the newest stored record than the window covers;
// the membership test alone cannot protect against double writes then.
func (u *Uploader) warnOnWindowGap(rows []meteo.Record, target string) {
	if len(rows) == 0 {
		return
	}
	const layout = "2006-01-02T15:04:05.000Z"
	newest, err := reading.NormalizeUTC(rows[0].DetectedAtUTC)
	if err != nil {
		return
	}
	newestAt, err := time.Parse(layout, newest)
	if err != nil {
		return
	}
	targetAt, err := time.Parse(layout, target)
	if err != nil {
		return
	}
	window := time.Duration(u.dest.WindowSize()) * time.Hour
	if targetAt.Sub(newestAt) > window {
		u.logger.Warn().
			Str("newest", newest).
			Str("target", target).
			Int("window", u.dest.WindowSize()).
			Msg("dedupe window may not cover gap since last stored record")
	}
}
