package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airbridge/airbridge/internal/provider/resilience"
	"github.com/airbridge/airbridge/internal/reading"
)

const (
	// DefaultBaseURL is the base URL of the station feed.
	DefaultBaseURL = "https://tortoise-fluent-rationally.ngrok-free.app"

	// ProviderName identifies this provider.
	ProviderName = "station60min"

	// monthPathFormat is the month route: /api/60min/json/YYYYMM.
	monthPathFormat = "%s/api/60min/json/%s"

	// localTimeLayout is the feed's local timestamp format.
	localTimeLayout = "2006/01/02 15:04:05"
)

// DefaultZone is the station's local time zone (UTC+8). The feed reports
// naive local timestamps in this zone.
var DefaultZone = time.FixedZone("UTC+8", 8*3600)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the feed client.
type ClientConfig struct {
	// BaseURL is the feed base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual feed requests (default: 20s).
	Timeout time.Duration

	// Zone is the station's local time zone (defaults to DefaultZone).
	Zone *time.Location
}

// Client fetches hourly readings from the station feed.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	zone       *time.Location
}

// NewClient creates a new feed client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	zone := cfg.Zone
	if zone == nil {
		zone = DefaultZone
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 20 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		zone:       zone,
	}
}

// TargetHour computes the hour the fetch aims at: now in the station's
// zone, truncated to the top of the hour, minus one hour. That is the
// most recent fully-closed hour.
func (c *Client) TargetHour(now time.Time) time.Time {
	local := now.In(c.zone)
	floored := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, c.zone)
	return floored.Add(-time.Hour)
}

// Fetch retrieves the reading for the hour immediately preceding now.
// It returns ErrNoData when the feed has no record for that hour and a
// *FeedError on transport or parse failures.
func (c *Client) Fetch(ctx context.Context, now time.Time) (*reading.Reading, error) {
	target := c.TargetHour(now)

	records, err := c.fetchMonth(ctx, target.Format("200601"))
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		raw, ok := rec[sourceTimeKey].(string)
		if !ok || raw == "" {
			continue
		}
		local, err := time.ParseInLocation(localTimeLayout, strings.TrimSpace(raw), c.zone)
		if err != nil {
			continue
		}
		floored := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, c.zone)
		if !floored.Equal(target) {
			continue
		}
		return c.toReading(rec, floored), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoData, target.Format(localTimeLayout))
}

// fetchMonth retrieves and decodes the month document containing every
// hourly record published so far for that month.
func (c *Client) fetchMonth(ctx context.Context, yearMonth string) ([]map[string]any, error) {
	url := fmt.Sprintf(monthPathFormat, c.baseURL, yearMonth)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &FeedError{Op: "create request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FeedError{Op: "fetch month", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FeedError{Op: "fetch month", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FeedError{Op: "read body", Err: err}
	}

	doc, err := extractJSON(string(body))
	if err != nil {
		return nil, &FeedError{Op: "extract json", Err: err}
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(doc), &records); err != nil {
		return nil, &FeedError{Op: "decode month", Err: err}
	}
	return records, nil
}

// extractJSON pulls the JSON document out of the feed's HTML envelope.
// The feed serves the month document entity-escaped inside a single
// <pre> block.
func extractJSON(page string) (string, error) {
	const startTag, endTag = "<pre>", "</pre>"

	start := strings.Index(page, startTag)
	end := strings.Index(page, endTag)
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no <pre> json block in response")
	}
	return strings.TrimSpace(html.UnescapeString(page[start+len(startTag) : end])), nil
}

// toReading converts a raw feed record into a Reading keyed on the
// hour-floored local timestamp.
func (c *Client) toReading(rec map[string]any, localHour time.Time) *reading.Reading {
	measurements := make(map[string]any, len(fieldMap))
	for srcKey, dstKey := range fieldMap {
		measurements[dstKey] = coerceValue(rec[srcKey])
	}

	return &reading.Reading{
		StationTimeLocal: localHour,
		DetectedAtUTC:    reading.FormatUTC(localHour),
		Measurements:     measurements,
	}
}

// coerceValue normalizes a raw feed value to a float64 or nil. The feed
// mixes numbers, numeric strings, and the placeholders na/nan/null/none;
// anything unparseable becomes an explicit null.
func coerceValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		switch strings.ToLower(s) {
		case "", "na", "nan", "null", "none":
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
}
