// Package main provides the one-shot relay entrypoint: fetch the
// previous hour's reading, upload it deduplicated, exit 0 or 1.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airbridge/airbridge/internal/relay"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airbridge-relay"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Str("run_id", uuid.New().String()).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting relay invocation")

	cfg := relay.ConfigFromEnv()
	job, err := relay.Build(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(relay.ExitError)
	}

	outcome, err := job.Run(context.Background())
	os.Exit(relay.ExitCode(outcome, err))
}
