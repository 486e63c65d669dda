// Package exporter publishes the latest polling cycle on a Prometheus
// scrape endpoint.
package exporter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/models"
)

const shutdownTimeout = 5 * time.Second

// Exporter holds the most recent value of every metric.
type Exporter struct {
	gatherer prometheus.Gatherer
	values   *prometheus.GaugeVec
	logger   *zap.Logger
}

// New registers the value gauge on reg. The collector's own metrics should
// be registered on the same registry so one scrape returns both.
func New(reg *prometheus.Registry, logger *zap.Logger) *Exporter {
	return &Exporter{
		gatherer: reg,
		values: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "unixstat_metric",
				Help: "Latest normalized value reported by a system command.",
			},
			[]string{"command", "category", "dimension", "name", "unit"},
		),
		logger: logger.Named("exporter"),
	}
}

// Update replaces the published values with metrics. Series missing from
// metrics are dropped.
func (e *Exporter) Update(metrics []models.Metric) {
	e.values.Reset()
	for _, m := range metrics {
		e.values.WithLabelValues(m.Command, m.Category, m.Dimension, m.Name, m.Unit).Set(m.Value)
	}
}

// Handler returns the scrape handler.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return e.serve(ctx, ln)
}

func (e *Exporter) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	e.logger.Info("Serving metrics", zap.String("addr", ln.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
