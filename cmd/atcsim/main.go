package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yegors/atc-sim/internal/api"
	"github.com/yegors/atc-sim/internal/config"
	"github.com/yegors/atc-sim/internal/eventlog"
	"github.com/yegors/atc-sim/internal/storage/sqlite"
	"github.com/yegors/atc-sim/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to the TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "atcsim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	sinks := eventlog.Multi{eventlog.NewLoggerSink(log)}

	// A nil interface, not a typed nil, keeps the events endpoints answering 503.
	var store api.EventStore
	var writer *sqlite.EventWriter
	if cfg.Storage.SQLitePath != "" {
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()

		storage, err := sqlite.NewEventStorage(db, log)
		if err != nil {
			return err
		}
		writer = sqlite.NewEventWriter(storage, cfg.Storage.EventBuffer, log)
		store = storage
		sinks = append(sinks, writer)
		log.Info("Persisting events", logger.String("path", cfg.Storage.SQLitePath))
	}

	simulation, err := buildSimulation(cfg, sinks, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(simulation, store, cfg.Server.CORSAllowedOrigins, cfg.Simulation.SnapshotPeriod(), log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	simErr := simulation.Run(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Error(err))
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			log.Error("Failed to flush events", logger.Error(err))
		}
		if n := writer.Dropped(); n > 0 {
			log.Warn("Events dropped under load", logger.Int64("dropped", n))
		}
	}

	log.Info("Shutdown complete")
	return simErr
}
