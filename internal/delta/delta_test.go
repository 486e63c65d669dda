package delta

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestObserve_BaselineThenRate(t *testing.T) {
	e := NewEngine(nil)
	key := catalog.MetricKey{Command: "iostat", Dimension: "sd0", Field: "r-s"}

	first := e.Observe(key, 10, t0)
	assert.Equal(t, Baseline, first.State)
	assert.False(t, first.Emit())

	second := e.Observe(key, 25, t0.Add(5*time.Second))
	require.True(t, second.Emit())
	assert.InDelta(t, 3.0, second.Rate, 1e-9)
	assert.False(t, second.Reset)

	smp, ok := e.Store().Get(key)
	require.True(t, ok)
	assert.Equal(t, 25.0, smp.Value)
}

func TestObserve_CounterResetClampsToZero(t *testing.T) {
	e := NewEngine(nil)
	key := catalog.MetricKey{Command: "netstat", Dimension: "hme0", Field: "Ipkts"}

	e.Observe(key, 100, t0)
	obs := e.Observe(key, 40, t0.Add(10*time.Second))
	require.True(t, obs.Emit())
	assert.Equal(t, 0.0, obs.Rate)
	assert.True(t, obs.Reset)

	// The lower value becomes the new baseline.
	obs = e.Observe(key, 60, t0.Add(20*time.Second))
	assert.InDelta(t, 2.0, obs.Rate, 1e-9)
	assert.False(t, obs.Reset)
}

func TestObserve_StalledClock(t *testing.T) {
	e := NewEngine(nil)
	key := catalog.MetricKey{Command: "netstat", Dimension: "lo0", Field: "Opkts"}

	e.Observe(key, 1, t0)
	obs := e.Observe(key, 5, t0)
	assert.Equal(t, Stalled, obs.State)
	assert.False(t, obs.Emit())

	smp, _ := e.Store().Get(key)
	assert.Equal(t, 5.0, smp.Value)
}

func TestObserve_IndependentDimensions(t *testing.T) {
	e := NewEngine(nil)
	hme := catalog.MetricKey{Command: "netstat", Dimension: "hme0", Field: "Ipkts"}
	lo := catalog.MetricKey{Command: "netstat", Dimension: "lo0", Field: "Ipkts"}

	e.Observe(hme, 1000, t0)
	e.Observe(lo, 10, t0)

	a := e.Observe(hme, 2000, t0.Add(10*time.Second))
	b := e.Observe(lo, 20, t0.Add(10*time.Second))
	assert.InDelta(t, 100.0, a.Rate, 1e-9)
	assert.InDelta(t, 1.0, b.Rate, 1e-9)
	assert.Equal(t, 2, e.Store().Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	e := NewEngine(NewStore())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := catalog.MetricKey{Command: fmt.Sprintf("cmd%d", i), Field: "f"}
			for j := 0; j < 100; j++ {
				e.Observe(key, float64(j), t0.Add(time.Duration(j)*time.Second))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, e.Store().Len())
}
