// Package app assembles and runs the mirrorgram daemon.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mirrorgram/mirrorgram/internal/config"
	"github.com/mirrorgram/mirrorgram/internal/cron"
	"github.com/mirrorgram/mirrorgram/internal/driver"
	"github.com/mirrorgram/mirrorgram/internal/filter"
	"github.com/mirrorgram/mirrorgram/internal/gateway"
	"github.com/mirrorgram/mirrorgram/internal/offset"
	"github.com/mirrorgram/mirrorgram/internal/relay"
	"github.com/mirrorgram/mirrorgram/internal/retry"
	"github.com/mirrorgram/mirrorgram/internal/telegram"
	"github.com/mirrorgram/mirrorgram/internal/telemetry"
	"github.com/mirrorgram/mirrorgram/internal/transform"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts the duplication workers and their
// supporting services, and blocks until a shutdown signal is received.
func Run(params RunParams) error {
	// A .env next to the binary supplies variables referenced from the
	// config file; already-set environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))
	logger.Info("mirrorgram starting",
		"version", params.Version,
		"commit", params.Commit,
	)

	pairs, err := cfg.ParsePairs()
	if err != nil {
		return err
	}
	patterns, err := filter.Compile(cfg.Filters.IgnoreFiles, cfg.Filters.Cleanup)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure: cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	store, err := offset.Open(filepath.Join(cfg.Storage.DataDir, "offsets.db"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("offset store close failed", "error", err)
		}
	}()

	api := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL, cfg.Telegram.Timeout)
	adapter := &botAdapter{api: api}

	me, err := api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	logger.Info("authenticated", "bot", me.Username, "pairs", len(pairs))

	rel, err := relay.New(adapter, filepath.Join(cfg.Storage.DataDir, "scratch"), logger)
	if err != nil {
		return err
	}

	drv := driver.New(
		pairs,
		adapter,
		store,
		transform.New(patterns, cfg.Limits.MaxMessage, cfg.Limits.MaxCaption),
		rel,
		classify,
		driver.Config{
			PollInterval: cfg.Poll.Interval,
			BatchSize:    cfg.Poll.BatchSize,
			Policy: retry.Policy{
				MaxAttempts:    cfg.Retry.MaxAttempts,
				InitialBackoff: cfg.Retry.InitialBackoff,
				MaxBackoff:     cfg.Retry.MaxBackoff,
				AttemptTimeout: cfg.Retry.AttemptTimeout,
			},
		},
		logger,
	)

	scheduler := cron.NewScheduler(logger)
	if err := scheduler.RegisterJob(&cron.ScratchSweepJob{
		Relay:        rel,
		MaxAge:       cfg.Maintenance.ScratchTTL,
		Logger:       logger,
		ScheduleExpr: cfg.Maintenance.SweepSchedule,
	}); err != nil {
		return err
	}
	if cp, ok := store.(offset.Checkpointer); ok {
		if err := scheduler.RegisterJob(&cron.CheckpointJob{
			Store:        cp,
			Logger:       logger,
			ScheduleExpr: cfg.Maintenance.CheckpointSchedule,
		}); err != nil {
			return err
		}
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer func() {
		if err := scheduler.Stop(context.Background()); err != nil {
			logger.Warn("scheduler stop failed", "error", err)
		}
	}()

	if cfg.Gateway.Listen != "" {
		gw := gateway.New(gateway.Config{
			Listen:    cfg.Gateway.Listen,
			AuthToken: cfg.Gateway.AuthToken,
		}, drv, store, logger)
		if err := gw.Start(); err != nil {
			return err
		}
		defer func() {
			if err := gw.Stop(context.Background()); err != nil {
				logger.Warn("gateway stop failed", "error", err)
			}
		}()
	}

	drv.Run(ctx)
	logger.Info("mirrorgram stopped")
	return nil
}
