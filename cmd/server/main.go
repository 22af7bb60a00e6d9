package main

import (
	"fmt"
	"os"

	"github.com/voyago-dev/voyago/internal/config"
	"github.com/voyago-dev/voyago/internal/logger"
	"github.com/voyago-dev/voyago/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger().With().Str("env", cfg.Environment).Logger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gateway")
	}

	log.Info().
		Str("version", version).
		Str("backend", cfg.APIBaseURL()).
		Str("audit_db", cfg.Database.URL).
		Msg("Starting Voyago gateway...")

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Gateway stopped with error")
	}
}
