package reading_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbridge/airbridge/internal/reading"
)

func TestFormatUTC(t *testing.T) {
	local := time.Date(2026, 1, 7, 5, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))
	assert.Equal(t, "2026-01-06T21:00:00.000Z", reading.FormatUTC(local))

	// Sub-millisecond precision is truncated, not rounded up.
	withNanos := time.Date(2026, 1, 6, 21, 0, 0, 123999999, time.UTC)
	assert.Equal(t, "2026-01-06T21:00:00.123Z", reading.FormatUTC(withNanos))
}

func TestNormalizeUTC(t *testing.T) {
	cases := map[string]string{
		"2026-01-06T21:00:00.000Z":     "2026-01-06T21:00:00.000Z",
		"2026-01-06T21:00:00Z":         "2026-01-06T21:00:00.000Z",
		"2026-01-07T05:00:00+08:00":    "2026-01-06T21:00:00.000Z",
		"2026-01-06T21:00:00.1234567Z": "2026-01-06T21:00:00.123Z",
		"2026-01-06T21:00:00":          "2026-01-06T21:00:00.000Z",
		"2026-01-06 21:00:00.12":       "2026-01-06T21:00:00.120Z",
		" 2026-01-06T21:00:00.000Z ":   "2026-01-06T21:00:00.000Z",
	}
	for in, want := range cases {
		got, err := reading.NormalizeUTC(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestNormalizeUTC_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "not-a-timestamp", "2026/01/06 21:00:00"} {
		_, err := reading.NormalizeUTC(in)
		assert.Error(t, err, "input %q", in)
	}
}
