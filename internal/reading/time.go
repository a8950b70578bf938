package reading

import (
	"fmt"
	"strings"
	"time"
)

// canonicalLayout is the detection-timestamp wire format: ISO-8601 UTC
// with millisecond precision and a trailing Z.
const canonicalLayout = "2006-01-02T15:04:05.000Z"

// naiveLayouts cover timestamps the destination's list endpoint has been
// observed to return without a zone designator; they are taken as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FormatUTC renders t in the canonical detection-timestamp format.
// The rendering is deterministic so that dedupe can compare by exact
// string equality.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(canonicalLayout)
}

// NormalizeUTC parses an ISO-8601 timestamp in any sub-second precision,
// with a trailing Z, a numeric offset, or no zone at all (taken as UTC),
// and re-renders it in the canonical format. Both sides of a dedupe
// comparison must pass through here before comparing.
func NormalizeUTC(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty detection timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FormatUTC(t), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatUTC(t), nil
		}
	}
	return "", fmt.Errorf("unrecognized detection timestamp %q", s)
}
