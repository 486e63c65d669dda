// Package sender implements the HTTP batch sender with retry logic.
// It encodes metric batches as gzip-compressed JSON or as CBOR and POSTs
// them to the API ingestion endpoint with exponential backoff on failure.
package sender

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/buffer"
	"github.com/Guliveer/unixstat-agent/internal/config"
	"github.com/Guliveer/unixstat-agent/internal/models"
)

const (
	// maxRetries is the maximum number of retry attempts before buffering locally.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// requestTimeout is the HTTP request timeout for each send attempt.
	requestTimeout = 10 * time.Second
)

// Origin identifies the host a batch comes from.
type Origin struct {
	Hostname string
	Platform string
}

// Sender handles batch transmission of metrics to the API with retry logic
// and local buffering as a fallback when the server is unreachable.
type Sender struct {
	client     *http.Client
	cfg        *config.Config
	origin     Origin
	logger     *zap.Logger
	buf        *buffer.Buffer
	retryDelay time.Duration
}

// New creates a new Sender with the given configuration, origin, logger, and buffer.
func New(cfg *config.Config, origin Origin, logger *zap.Logger, buf *buffer.Buffer) *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		cfg:        cfg,
		origin:     origin,
		logger:     logger.Named("sender"),
		buf:        buf,
		retryDelay: baseRetryDelay,
	}
}

// Send attempts to send a batch of metrics to the API.
// On failure after all retries, the batch is buffered locally for later transmission.
func (s *Sender) Send(ctx context.Context, metrics []models.Metric) {
	if err := s.deliver(ctx, metrics); err != nil {
		s.logger.Error("Delivery failed, buffering batch", zap.Error(err))
		s.bufferBatch(metrics)
	}
}

// deliver sends one batch, retrying with exponential backoff. A rate limit
// response ends the attempts immediately.
func (s *Sender) deliver(ctx context.Context, metrics []models.Metric) error {
	batch := models.MetricBatch{
		ID:           uuid.New().String(),
		MachineToken: s.cfg.Server.MachineToken,
		Hostname:     s.origin.Hostname,
		Platform:     s.origin.Platform,
		Metrics:      metrics,
	}

	body, contentType, err := s.encode(batch)
	if err != nil {
		return err
	}

	// Retry loop with exponential backoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * s.retryDelay
			s.logger.Warn("Retrying send",
				zap.String("batch", batch.ID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = s.doSend(ctx, body, contentType)
		if err == nil {
			s.logger.Debug("Batch sent successfully",
				zap.String("batch", batch.ID),
				zap.Int("metrics", len(metrics)))
			return nil
		}

		// Rate limited: no further retries
		if isRateLimited(err) {
			return err
		}

		s.logger.Warn("Send failed",
			zap.String("batch", batch.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return fmt.Errorf("all retries exhausted for batch %s: %w", batch.ID, err)
}

// encode serializes the batch with the configured encoding.
func (s *Sender) encode(batch models.MetricBatch) ([]byte, string, error) {
	if s.cfg.Server.Encoding == "cbor" {
		data, err := cbor.Marshal(batch)
		if err != nil {
			return nil, "", fmt.Errorf("marshal cbor: %w", err)
		}
		return data, "application/cbor", nil
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return nil, "", fmt.Errorf("marshal json: %w", err)
	}

	// Compress with gzip
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return nil, "", fmt.Errorf("compress batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize gzip compression: %w", err)
	}
	return compressed.Bytes(), "application/json", nil
}

// doSend performs a single HTTP POST to the ingest endpoint.
func (s *Sender) doSend(ctx context.Context, body []byte, contentType string) error {
	url := fmt.Sprintf("%s/api/ingest", s.cfg.Server.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	if contentType == "application/json" {
		req.Header.Set("Content-Encoding", "gzip")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Server.MachineToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}

	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// bufferBatch stores a failed batch in the local file buffer.
func (s *Sender) bufferBatch(metrics []models.Metric) {
	if s.buf == nil {
		s.logger.Warn("No buffer available, dropping metrics",
			zap.Int("count", len(metrics)))
		return
	}
	if err := s.buf.Store(metrics); err != nil {
		s.logger.Error("Failed to buffer metrics", zap.Error(err))
	}
}

// FlushBuffer attempts to send all previously buffered metrics, oldest
// first. Called on startup to drain any batches that were stored during
// prior outages. Draining stops at the first batch that cannot be delivered.
func (s *Sender) FlushBuffer(ctx context.Context) {
	if s.buf == nil || s.buf.Count() == 0 {
		return
	}

	s.logger.Info("Flushing buffered metrics", zap.Int("batches", s.buf.Count()))

	n, err := s.buf.Drain(func(metrics []models.Metric) error {
		return s.deliver(ctx, metrics)
	})
	if err != nil {
		s.logger.Warn("Stopped flushing buffer",
			zap.Int("delivered", n),
			zap.Error(err))
		return
	}
	s.logger.Info("Buffer flushed", zap.Int("delivered", n))
}

// rateLimitError indicates the server returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}

// isRateLimited checks whether an error is a rate limit response.
func isRateLimited(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}
