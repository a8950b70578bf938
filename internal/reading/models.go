// Package reading defines the hourly air-quality reading relayed from the
// station feed into the destination store, together with its validation
// rules and the canonical detection-timestamp format used as the dedup key.
package reading

import (
	"fmt"
	"time"
)

// Validation errors.

// MissingFieldError reports a required measurement field that is absent
// from the payload entirely.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// BlankFieldError reports a required field whose value is an empty or
// whitespace-only string. A blank string is a feed formatting fault, not a
// missing-value sentinel; explicit null is the sentinel.
type BlankFieldError struct {
	Field string
}

func (e *BlankFieldError) Error() string {
	return fmt.Sprintf("blank string not allowed in field %q", e.Field)
}

// RequiredFields lists the measurement fields every reading must carry as
// keys. Values may be explicitly nil (instrument offline for that
// pollutant) but never blank strings.
var RequiredFields = []string{
	"pm_25",
	"nmhc",
	"thc",
	"ch4",
	"so2",
	"o3",
	"nox",
	"no",
	"co",
	"co2",
}

// Reading is one hourly observation from the station. It is built fresh
// per invocation from the feed response and discarded when the invocation
// completes; nothing is persisted locally.
type Reading struct {
	// StationTimeLocal is the source feed's reported local hour.
	StationTimeLocal time.Time

	// DetectedAtUTC is the canonical ISO-8601 UTC millisecond timestamp
	// derived from StationTimeLocal. It is the dedup key.
	DetectedAtUTC string

	// Measurements maps pollutant field names to their values. A value is
	// a float64, nil, or (when the feed misbehaves) a raw string that
	// validation must reject if blank.
	Measurements map[string]any
}

// Payload returns the create-endpoint payload: detectedAtUtc plus exactly
// the required measurement fields, absent values as explicit nulls.
func (r *Reading) Payload() map[string]any {
	out := make(map[string]any, len(RequiredFields)+1)
	out["detectedAtUtc"] = r.DetectedAtUTC
	for _, f := range RequiredFields {
		out[f] = r.Measurements[f]
	}
	return out
}
