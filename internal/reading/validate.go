package reading

import "strings"

// Validate checks a reading before any network interaction with the
// destination. Every required field must be present as a key; a present
// value that is an empty or whitespace-only string is rejected; an
// explicit nil is accepted.
func Validate(r *Reading) error {
	if strings.TrimSpace(r.DetectedAtUTC) == "" {
		return &MissingFieldError{Field: "detectedAtUtc"}
	}

	for _, f := range RequiredFields {
		v, ok := r.Measurements[f]
		if !ok {
			return &MissingFieldError{Field: f}
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return &BlankFieldError{Field: f}
		}
	}
	return nil
}
