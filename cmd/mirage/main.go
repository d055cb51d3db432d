package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucid-vigil/mirage/pkg/api"
	"github.com/lucid-vigil/mirage/pkg/cluster"
	"github.com/lucid-vigil/mirage/pkg/config"
	"github.com/lucid-vigil/mirage/pkg/logger"
	"github.com/lucid-vigil/mirage/pkg/scheduler"
	"github.com/lucid-vigil/mirage/pkg/server"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

func main() {
	// Load configuration first
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger based on config
	logger.InitLogger(cfg.LogLevel)

	log.Info().Msg("Mirage honeypot starting...")
	log.Info().Msgf("Configuration loaded: LogLevel=%s, APIPort=%s, ListenPort=%d", cfg.LogLevel, cfg.APIPort, cfg.Listen.Port)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())

	// Set up a channel to listen for OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Goroutine to handle graceful shutdown
	go func() {
		sig := <-sigChan
		log.Info().Msgf("Received signal: %s. Shutting down gracefully...", sig)
		cancel() // Cancel the context to signal other goroutines to stop
	}()

	// Open the event store
	store, err := storage.OpenSQLite(cfg.Database.Path, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open event store")
	}
	defer store.Close()

	// Live config handle; reload banner and deception toggle on file change
	live := config.NewLive(cfg)
	if path := cfg.FilePath(); path != "" {
		watcher, err := config.Watch(path, live, log.Logger)
		if err != nil {
			log.Error().Err(err).Msg("Config watcher unavailable, live reload disabled")
		} else {
			defer watcher.Close()
		}
	}

	// Start the reporting API in a goroutine
	go func() {
		if err := api.NewServer(store, log.Logger).ListenAndServe(cfg.APIPort); err != nil {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	// Optional periodic clustering for analyst triage
	if cfg.Analysis.Enabled {
		interval, err := time.ParseDuration(cfg.Analysis.Interval)
		if err != nil {
			log.Error().Err(err).Msg("Invalid analysis interval, periodic clustering disabled")
		} else {
			sched := scheduler.NewScheduler()
			sched.RegisterJob(cluster.NewJob(store, log.Logger), interval)
			sched.Start(ctx)
		}
	}

	// Run the honeypot listener; this blocks until shutdown or a bind failure
	if err := server.New(live, store, log.Logger).ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("Honeypot listener failed")
	}

	log.Info().Msg("Mirage honeypot stopped.")
	time.Sleep(1 * time.Second) // Give some time for cleanup
}
