// Package feed provides the client for the station's hourly air-quality
// feed and selects the reading for the most recent fully-closed hour.
package feed

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the feed has no record for the target hour. The
// station publishes with roughly one hour of lag; a missing hour is
// treated as a station outage (for example a power loss) and reported,
// not retried.
var ErrNoData = errors.New("no reading for target hour")

// FeedError indicates a transport or parse failure reaching the feed
// itself, as opposed to the feed answering with no data.
type FeedError struct {
	Op  string
	Err error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed unavailable: %s: %v", e.Op, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// sourceTimeKey is the feed's column carrying the record's local
// timestamp, formatted "2006/01/02 15:04:05".
const sourceTimeKey = "日期時間"

// fieldMap translates the feed's measurement columns to the destination
// field names.
var fieldMap = map[string]string{
	"PM25": "pm_25",
	"NMHC": "nmhc",
	"THC":  "thc",
	"CH4":  "ch4",
	"SO2":  "so2",
	"O3":   "o3",
	"NOX":  "nox",
	"NO":   "no",
	"CO":   "co",
	"CO2":  "co2",
}
