package worker

import (
	"os"
	"time"
)

// Config holds configuration for the long-running worker.
type Config struct {
	// Port for the health/metrics HTTP server. Default: 8080.
	Port string

	// TickOffset is how far past the top of the hour each run starts.
	// The feed publishes an hour with roughly one hour of lag, so a few
	// minutes of slack avoids racing its publication. Default: 5m.
	TickOffset time.Duration

	// RunTimeout bounds one relay invocation. Default: 2m.
	RunTimeout time.Duration
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	offset, _ := time.ParseDuration(getEnvOrDefault("WORKER_TICK_OFFSET", "5m"))
	timeout, _ := time.ParseDuration(getEnvOrDefault("WORKER_RUN_TIMEOUT", "2m"))

	return Config{
		Port:       getEnvOrDefault("APP_PORT", "8080"),
		TickOffset: offset,
		RunTimeout: timeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
