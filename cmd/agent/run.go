package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/unixstat-agent/internal/buffer"
	"github.com/Guliveer/unixstat-agent/internal/collector"
	"github.com/Guliveer/unixstat-agent/internal/config"
	"github.com/Guliveer/unixstat-agent/internal/exporter"
	"github.com/Guliveer/unixstat-agent/internal/scheduler"
	"github.com/Guliveer/unixstat-agent/internal/sender"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the collection loop until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := initLogger(cfg)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runAgent(ctx, cfg, logger)
		},
	}
}

// runAgent initializes all components and starts the collection/send loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	info, tbl, err := selectTable(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting UnixStat Agent",
		zap.String("version", version),
		zap.String("os", info.OS),
		zap.String("release", info.Release),
		zap.String("table", tbl.Name()),
		zap.Strings("commands", tbl.Commands()),
		zap.String("server", cfg.Server.URL))

	reg := prometheus.NewRegistry()
	coll := newCollector(cfg, tbl, reg, logger)
	sched := scheduler.New(coll, cfg, logger)

	if cfg.ReporterEnabled() {
		// Initialize file-based buffer
		buf, err := buffer.New(cfg.Buffer.DBPath, cfg.Buffer.MaxSizeMB, logger)
		if err != nil {
			return err
		}

		snd := sender.New(cfg, sender.Origin{Hostname: info.Hostname, Platform: tbl.Name()}, logger, buf)

		// Flush any buffered metrics from previous runs
		snd.FlushBuffer(ctx)

		sched.OnBatchReady(snd.Send)
	} else {
		logger.Info("No server URL configured, HTTP reporting disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Exporter.Enabled {
		exp := exporter.New(reg, logger)
		sched.OnCycle(func(res *collector.Result) {
			exp.Update(res.Metrics)
		})
		g.Go(func() error {
			return exp.Serve(gctx, cfg.Exporter.Listen)
		})
	}

	g.Go(func() error {
		logger.Info("Agent running",
			zap.Duration("collect_interval", cfg.Collection.Interval.Duration),
			zap.Duration("batch_interval", cfg.Collection.BatchInterval.Duration))
		sched.Start(gctx)
		return nil
	})

	err = g.Wait()
	logger.Info("Agent stopped")
	return err
}
