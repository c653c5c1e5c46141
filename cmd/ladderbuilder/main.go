// ladderbuilder replays a sport's historical Betfair marketdata files into
// three document-store streams: per-market metadata, per-packet ladder
// snapshots, and a normalized raw-packet stream.
//
// Architecture:
//
//	main.go                  — entry point: loads config, runs the fleet to completion
//	internal/config          — YAML + env configuration
//	internal/blobstore       — S3 file enumeration, fetch, bz2 decompression
//	internal/packet          — single-line packet decoding
//	internal/bfdata          — wire-format types
//	internal/ladderbook      — per-runner/per-market order book maintenance
//	internal/marketdef       — market definition normalization + in-play tracking
//	internal/metadata        — metadata record construction, sport hooks, filters
//	internal/builder         — per-file two-pass orchestration
//	internal/fleet           — bounded worker pool over files
//	internal/docstore        — MongoDB time-series + metadata persistence
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hubamatyas/ladderbuilder/internal/blobstore"
	"github.com/hubamatyas/ladderbuilder/internal/config"
	"github.com/hubamatyas/ladderbuilder/internal/docstore"
	"github.com/hubamatyas/ladderbuilder/internal/fleet"
	"github.com/hubamatyas/ladderbuilder/internal/metadata"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("LB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	// A run id ties every log line from this invocation together, since a
	// single host can run many backfills against overlapping folders.
	logger := slog.New(handler).With("run_id", uuid.NewString())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sport, err := metadata.ParseSport(cfg.Sport)
	if err != nil {
		logger.Error("invalid sport", "error", err)
		os.Exit(1)
	}

	limiter := blobstore.NewTokenBucket(cfg.Source.RateLimitBurst, cfg.Source.RateLimitPerSec)
	source, err := blobstore.NewS3Source(ctx, cfg.Source.Bucket, limiter)
	if err != nil {
		logger.Error("failed to create blob source", "error", err)
		os.Exit(1)
	}

	writer, err := docstore.NewMongoWriter(ctx, cfg.Store.URI, cfg.Store.Database)
	if err != nil {
		logger.Error("failed to connect to document store", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := writer.Close(closeCtx); err != nil {
			logger.Error("failed to close document store", "error", err)
		}
	}()

	workers := cfg.Workers
	if !cfg.IsMultiprocess {
		workers = 1
	}
	runner := fleet.New(source, writer, sport, workers, logger)

	logger.Info("starting ladder build",
		"folder", cfg.Folder,
		"sport", sport,
		"workers", workers,
	)

	start := time.Now()
	results, err := runner.Run(ctx, cfg.Folder)
	if err != nil {
		logger.Error("fleet run failed", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("file processing failed", "key", r.Key, "error", r.Err)
		}
	}

	logger.Info("ladder build complete",
		"files", len(results),
		"failed", failed,
		"elapsed", time.Since(start),
	)

	if failed > 0 {
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
