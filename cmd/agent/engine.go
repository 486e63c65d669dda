package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/collector"
	"github.com/Guliveer/unixstat-agent/internal/config"
	"github.com/Guliveer/unixstat-agent/internal/platform"
)

// selectTable detects the host and returns its command table, restricted
// to the configured commands when a list is given.
func selectTable(ctx context.Context, cfg *config.Config, logger *zap.Logger) (platform.Info, *catalog.Table, error) {
	info := platform.Detect(ctx, logger)
	tbl, err := platform.Table(info, cfg.Collection.Platform)
	if err != nil {
		return info, nil, err
	}
	if len(cfg.Collection.Commands) > 0 {
		tbl, err = tbl.Subset(cfg.Collection.Commands)
		if err != nil {
			return info, nil, fmt.Errorf("restricting commands: %w", err)
		}
	}
	return info, tbl, nil
}

// newCollector builds the engine for tbl from the collection settings.
func newCollector(cfg *config.Config, tbl *catalog.Table, reg prometheus.Registerer, logger *zap.Logger) *collector.Collector {
	return collector.New(tbl,
		collector.WithLogger(logger),
		collector.WithTimeout(cfg.Collection.CommandTimeout.Duration),
		collector.WithConcurrency(cfg.Collection.Concurrency),
		collector.WithRegisterer(reg),
	)
}
