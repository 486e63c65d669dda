// Package collector runs one polling cycle of the command pipeline: execute
// every command in a platform table, parse its output into rows, resolve
// each field against the metric catalog, turn counters into rates and
// normalize the results.
//
// A Collector owns its table, executor and previous-sample store, so several
// collectors can run side by side without sharing state.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/delta"
	"github.com/Guliveer/unixstat-agent/internal/executor"
	"github.com/Guliveer/unixstat-agent/internal/models"
	"github.com/Guliveer/unixstat-agent/internal/normalize"
	"github.com/Guliveer/unixstat-agent/internal/parser"
)

// DefaultConcurrency is the number of commands run in parallel.
const DefaultConcurrency = 4

// Collector is the collection engine for one platform table.
type Collector struct {
	table       *catalog.Table
	exec        *executor.Executor
	rates       *delta.Engine
	logger      *zap.Logger
	metrics     *engineMetrics
	concurrency int
	now         func() time.Time

	runner   executor.Runner
	timeout  time.Duration
	store    *delta.Store
	register prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Collector) { c.logger = l } }

// WithRunner replaces the process runner.
func WithRunner(r executor.Runner) Option { return func(c *Collector) { c.runner = r } }

// WithTimeout bounds each command's execution.
func WithTimeout(d time.Duration) Option { return func(c *Collector) { c.timeout = d } }

// WithConcurrency sets how many commands run at once.
func WithConcurrency(n int) Option { return func(c *Collector) { c.concurrency = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

// WithStore shares a previous-sample store.
func WithStore(s *delta.Store) Option { return func(c *Collector) { c.store = s } }

// WithRegisterer registers the engine's own metrics. Without it they are
// kept in a private registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *Collector) { c.register = r }
}

// New creates a Collector for table. The table is frozen if it is not
// already. Validation problems are logged, not fatal: affected fields are
// dropped at runtime as CatalogLookupErrors.
func New(table *catalog.Table, opts ...Option) *Collector {
	c := &Collector{
		table:       table,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("collector")
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	if c.register == nil {
		c.register = prometheus.NewRegistry()
	}
	if !table.Frozen() {
		table.Freeze()
	}

	c.exec = executor.New(c.runner, c.timeout, c.logger)
	c.rates = delta.NewEngine(c.store)
	c.metrics = newEngineMetrics(c.register, c.rates.Store())

	if err := table.Validate(); err != nil {
		c.logger.Warn("Command table has problems", zap.String("table", table.Name()), zap.Error(err))
	}
	return c
}

// Table returns the table the collector was built with.
func (c *Collector) Table() *catalog.Table { return c.table }

// Result is the outcome of one polling cycle.
type Result struct {
	Started  time.Time
	Duration time.Duration
	// Metrics are ordered by command registration order, then row order,
	// then field order.
	Metrics []models.Metric
	// Errors holds every isolated failure of the cycle.
	Errors []error
}

type commandResult struct {
	metrics []models.Metric
	errs    []error
}

// Collect runs every command in the table once. Failures of single commands
// or fields are isolated and returned in Result.Errors. The returned error
// is ErrNoCommandsRan when no command could be started at all.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	keys := c.table.Commands()
	res := &Result{Started: c.now()}
	results := make([]commandResult, len(keys))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i].metrics, results[i].errs = c.CollectCommand(ctx, key)
			return nil
		})
	}
	// Workers record failures in results and always return nil; the group
	// only bounds concurrency.
	_ = g.Wait()

	spawnFailures := 0
	for _, r := range results {
		res.Metrics = append(res.Metrics, r.metrics...)
		res.Errors = append(res.Errors, r.errs...)
		for _, err := range r.errs {
			var execErr *executor.ExecutionError
			if errors.As(err, &execErr) && execErr.Spawn() {
				spawnFailures++
			}
		}
	}
	res.Duration = time.Since(res.Started)
	c.metrics.cycleMetrics.Set(float64(len(res.Metrics)))

	if len(keys) > 0 && spawnFailures == len(keys) {
		return res, ErrNoCommandsRan
	}
	return res, ctx.Err()
}

// CollectCommand runs a single command and returns its metrics together
// with any isolated errors.
func (c *Collector) CollectCommand(ctx context.Context, key string) ([]models.Metric, []error) {
	def, err := c.table.LookupCommand(key)
	if err != nil {
		return nil, []error{err}
	}

	start := time.Now()
	lines, err := c.exec.Run(ctx, key, def)
	c.metrics.duration.WithLabelValues(key).Observe(time.Since(start).Seconds())
	if err != nil {
		c.fail(key, kindExecution, err)
		return nil, []error{err}
	}
	at := c.now()

	rows, err := parser.Parse(key, lines, def)
	if err != nil {
		c.fail(key, kindParse, err)
		return nil, []error{err}
	}

	var (
		out  []models.Metric
		errs []error
	)
	for _, row := range rows {
		for _, field := range row.Fields {
			m, ok, err := c.resolve(catalog.MetricKey{Command: key, Dimension: row.Dimension, Field: field}, row.Values[field], at)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				out = append(out, m)
			}
		}
	}
	return out, errs
}

// resolve turns one raw field into a metric. ok is false when the field
// produced no value this cycle (delta baseline or stalled clock).
func (c *Collector) resolve(key catalog.MetricKey, raw string, at time.Time) (models.Metric, bool, error) {
	desc, err := c.table.LookupMetric(key.Command, key.Field)
	if err != nil {
		lerr := &CatalogLookupError{Key: key}
		c.fail(key.Command, kindCatalog, lerr)
		return models.Metric{}, false, lerr
	}

	value, err := normalize.ParseValue(key, raw)
	if err != nil {
		c.fail(key.Command, kindValue, err)
		return models.Metric{}, false, err
	}

	if desc.Kind == catalog.Delta {
		obs := c.rates.Observe(key, value, at)
		if obs.Reset {
			c.metrics.resets.WithLabelValues(key.Command).Inc()
			c.logger.Warn("Counter went backwards, reporting zero rate",
				zap.String("metric", key.String()),
				zap.Float64("value", value))
		}
		if !obs.Emit() {
			return models.Metric{}, false, nil
		}
		value = obs.Rate
	}
	return normalize.Normalize(key, desc, value, at), true, nil
}

func (c *Collector) fail(command, kind string, err error) {
	c.metrics.errors.WithLabelValues(command, kind).Inc()
	c.logger.Warn("Collection failed",
		zap.String("command", command),
		zap.String("kind", kind),
		zap.Error(err))
}
