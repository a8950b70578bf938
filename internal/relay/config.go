// Package relay wires the fetcher and the uploader into the once-per-
// invocation job and maps its terminal outcomes to process exit codes.
package relay

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/airbridge/airbridge/internal/feed"
	"github.com/airbridge/airbridge/internal/meteo"
)

// Config holds everything one invocation needs. Credentials arrive here
// explicitly; nothing deeper in the call stack reads the environment.
type Config struct {
	// FeedBaseURL is the station feed base URL.
	FeedBaseURL string

	// FeedUTCOffsetHours is the station's local zone as a whole-hour UTC
	// offset. Default: 8.
	FeedUTCOffsetHours int

	// MeteoBaseURL is the destination storage API base URL.
	MeteoBaseURL string

	// Account and Password authenticate against the destination. They
	// must be supplied; neither is ever logged.
	Account  string
	Password string

	// HTTPTimeout bounds every individual network call. Default: 20s.
	HTTPTimeout time.Duration

	// WindowSize is the dedupe window size. Default: 24.
	WindowSize int
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	offset, _ := strconv.Atoi(getEnvOrDefault("FEED_UTC_OFFSET_HOURS", "8"))
	window, _ := strconv.Atoi(getEnvOrDefault("DEDUPE_WINDOW_SIZE", strconv.Itoa(meteo.DefaultWindowSize)))
	timeout, _ := time.ParseDuration(getEnvOrDefault("HTTP_TIMEOUT", "20s"))

	return Config{
		FeedBaseURL:        getEnvOrDefault("FEED_BASE_URL", feed.DefaultBaseURL),
		FeedUTCOffsetHours: offset,
		MeteoBaseURL:       getEnvOrDefault("METEO_BASE_URL", "https://meteo.local2.tempestdigi.com"),
		Account:            os.Getenv("METEO_ACCOUNT"),
		Password:           os.Getenv("METEO_PASSWORD"),
		HTTPTimeout:        timeout,
		WindowSize:         window,
	}
}

// Validate checks the parts of the configuration that have no workable
// default.
func (c Config) Validate() error {
	if c.Account == "" || c.Password == "" {
		return errors.New("missing destination account or password")
	}
	if c.MeteoBaseURL == "" {
		return errors.New("missing destination base URL")
	}
	return nil
}

// Zone returns the station's local time zone.
func (c Config) Zone() *time.Location {
	offset := c.FeedUTCOffsetHours
	if offset == 0 {
		return feed.DefaultZone
	}
	name := "UTC+" + strconv.Itoa(offset)
	if offset < 0 {
		name = "UTC" + strconv.Itoa(offset)
	}
	return time.FixedZone(name, offset*3600)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
