// Package scheduler implements a tick-based periodic collection scheduler.
// It runs a polling cycle at a configurable interval and batches the
// resulting metrics for transmission. The scheduler does NOT send data
// directly; it invokes a callback when a batch is ready.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/collector"
	"github.com/Guliveer/unixstat-agent/internal/config"
	"github.com/Guliveer/unixstat-agent/internal/models"
)

// shutdownFlushTimeout bounds delivery of the last batch after the
// scheduler's context was cancelled.
const shutdownFlushTimeout = 15 * time.Second

// Source runs one polling cycle.
type Source interface {
	Collect(ctx context.Context) (*collector.Result, error)
}

// Scheduler manages periodic metric collection and batching.
type Scheduler struct {
	source Source
	cfg    *config.Config
	logger *zap.Logger

	batch   []models.Metric
	batchMu sync.Mutex

	onBatchReady func(context.Context, []models.Metric)
	onCycle      func(*collector.Result)
}

// New creates a new Scheduler with the given source, config, and logger.
func New(source Source, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		source: source,
		cfg:    cfg,
		logger: logger.Named("scheduler"),
		batch:  make([]models.Metric, 0),
	}
}

// OnBatchReady sets the callback invoked when a batch of metrics is ready to send.
// The callback receives the batch and is responsible for transmission/buffering.
// The context stays live for the final flush on shutdown.
func (s *Scheduler) OnBatchReady(fn func(context.Context, []models.Metric)) {
	s.onBatchReady = fn
}

// OnCycle sets a callback invoked after every polling cycle.
func (s *Scheduler) OnCycle(fn func(*collector.Result)) {
	s.onCycle = fn
}

// Start begins the collection and batching loops. It blocks until the context
// is cancelled. On shutdown, it flushes any remaining batch.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.cfg.Collection.Interval.Duration)
	batchTicker := time.NewTicker(s.cfg.Collection.BatchInterval.Duration)

	defer collectTicker.Stop()
	defer batchTicker.Stop()

	// Do an initial collection immediately
	s.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			// Flush remaining batch on shutdown
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			s.flushBatch(flushCtx)
			cancel()
			return
		case <-collectTicker.C:
			s.collect(ctx)
		case <-batchTicker.C:
			s.flushBatch(ctx)
		}
	}
}

// RunOnce performs a single cycle and returns its result without batching.
func (s *Scheduler) RunOnce(ctx context.Context) (*collector.Result, error) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.Collection.Interval.Duration)
	defer cancel()
	return s.source.Collect(cycleCtx)
}

// collect runs one cycle bounded by the collection interval and appends
// its metrics to the pending batch.
func (s *Scheduler) collect(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, collector.ErrNoCommandsRan):
		s.logger.Error("No command could be started", zap.Error(err))
	case err != nil && ctx.Err() == nil:
		s.logger.Warn("Collection cycle cut short", zap.Error(err))
	}
	if res == nil {
		return
	}

	for _, cerr := range res.Errors {
		s.logger.Debug("Isolated collection error", zap.Error(cerr))
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, res.Metrics...)
	s.batchMu.Unlock()

	if s.onCycle != nil {
		s.onCycle(res)
	}

	s.logger.Debug("Collected metrics",
		zap.Time("timestamp", res.Started),
		zap.Int("metrics", len(res.Metrics)),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", res.Duration))
}

// flushBatch sends the current batch via the callback and resets the buffer.
func (s *Scheduler) flushBatch(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]models.Metric, 0)
	s.batchMu.Unlock()

	s.logger.Info("Flushing batch", zap.Int("count", len(batch)))

	if s.onBatchReady != nil {
		s.onBatchReady(ctx, batch)
	}
}
