// Package uploader drives one reading through the destination pipeline:
// validation, login, duplicate check against the recent-records window,
// and submission with a single re-authentication retry. The control flow
// is an explicit finite state machine so the one-retry bound stays
// auditable.
package uploader

// State is a stage of the upload pipeline.
type State int

const (
	// StateStart is the initial state; the reading has not been looked at.
	StateStart State = iota

	// StateValidated means required-field validation passed.
	StateValidated

	// StateAuthenticated means a login succeeded and a session cookie is
	// held.
	StateAuthenticated

	// StateDedupeChecked means the recent-records window was queried and
	// the reading is not present in it.
	StateDedupeChecked

	// StateSubmitting means the reading is being posted to the create
	// endpoint.
	StateSubmitting

	// StateReauthRetry means an authorization failure consumed the single
	// retry; a fresh login and a fresh dedupe check follow.
	StateReauthRetry

	// StateSkipped is terminal: the reading already exists in the window.
	// This is a success, not an error.
	StateSkipped

	// StateSucceeded is terminal: the reading was stored.
	StateSucceeded

	// StateFailed is terminal: the invocation failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateValidated:
		return "validated"
	case StateAuthenticated:
		return "authenticated"
	case StateDedupeChecked:
		return "dedupe_checked"
	case StateSubmitting:
		return "submitting"
	case StateReauthRetry:
		return "reauth_retry"
	case StateSkipped:
		return "skipped"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// terminal reports whether the machine stops at s.
func (s State) terminal() bool {
	return s == StateSkipped || s == StateSucceeded || s == StateFailed
}
