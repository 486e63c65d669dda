package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/buffer"
	"github.com/Guliveer/unixstat-agent/internal/collector"
	"github.com/Guliveer/unixstat-agent/internal/config"
	"github.com/Guliveer/unixstat-agent/internal/models"
	"github.com/Guliveer/unixstat-agent/internal/sender"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSource) Collect(ctx context.Context) (*collector.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &collector.Result{
		Started: time.Now(),
		Metrics: []models.Metric{{Command: "vmstat", Category: "CPU", Name: "Idle", Value: float64(f.calls)}},
	}, f.err
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig(interval, batch time.Duration) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Collection.Interval = config.Duration{Duration: interval}
	cfg.Collection.BatchInterval = config.Duration{Duration: batch}
	return cfg
}

func TestStart_FlushesOnShutdown(t *testing.T) {
	src := &fakeSource{}
	s := New(src, testConfig(time.Hour, time.Hour), zap.NewNop())

	var (
		mu      sync.Mutex
		batches [][]models.Metric
		cycles  int
	)
	s.OnBatchReady(func(ctx context.Context, b []models.Metric) {
		assert.NoError(t, ctx.Err(), "final flush must get a live context")
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
	})
	s.OnCycle(func(*collector.Result) {
		mu.Lock()
		cycles++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 1)
	assert.Equal(t, 1, cycles)
}

func TestStart_BatchesSeveralCycles(t *testing.T) {
	src := &fakeSource{}
	s := New(src, testConfig(10*time.Millisecond, time.Hour), zap.NewNop())

	var got []models.Metric
	s.OnBatchReady(func(_ context.Context, b []models.Metric) { got = append(got, b...) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, len(got), 3)
}

func TestCollect_NoCommandsRanKeepsRunning(t *testing.T) {
	src := &fakeSource{err: collector.ErrNoCommandsRan}
	s := New(src, testConfig(time.Hour, time.Hour), zap.NewNop())

	s.collect(context.Background())
	s.collect(context.Background())

	assert.Equal(t, 2, src.count())
	assert.Len(t, s.batch, 2)
}

func TestFlushBatch_EmptyIsNoop(t *testing.T) {
	s := New(&fakeSource{}, testConfig(time.Hour, time.Hour), zap.NewNop())
	called := false
	s.OnBatchReady(func(context.Context, []models.Metric) { called = true })
	s.flushBatch(context.Background())
	assert.False(t, called)
}

func TestStart_ShutdownFlushIsDelivered(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cfg := testConfig(time.Hour, time.Hour)
	cfg.Server.URL = srv.URL
	cfg.Server.MachineToken = "tok"

	buf, err := buffer.New(t.TempDir(), 10, zap.NewNop())
	require.NoError(t, err)
	snd := sender.New(cfg, sender.Origin{Hostname: "sol01", Platform: "solaris"}, zap.NewNop(), buf)

	src := &fakeSource{}
	s := New(src, cfg, zap.NewNop())
	s.OnBatchReady(snd.Send)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 0, buf.Count())
}
