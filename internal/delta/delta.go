// Package delta converts monotonic counters into per-second rates across
// polling cycles. The previous-sample store is the only state the engine
// carries from one cycle to the next.
package delta

import (
	"sync"
	"time"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// Sample is the last raw value seen for a metric key.
type Sample struct {
	Value float64
	At    time.Time
}

// Store holds one Sample per metric key. It is safe for concurrent use by
// commands running in parallel.
type Store struct {
	mu      sync.Mutex
	samples map[catalog.MetricKey]Sample
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{samples: make(map[catalog.MetricKey]Sample)}
}

// Swap stores cur under key and returns the sample it replaced.
func (s *Store) Swap(key catalog.MetricKey, cur Sample) (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.samples[key]
	s.samples[key] = cur
	return prev, ok
}

// Get returns the stored sample for key.
func (s *Store) Get(key catalog.MetricKey) (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp, ok := s.samples[key]
	return smp, ok
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// State is the lifecycle position of a delta key.
type State int

const (
	// Baseline is the first observation; there is nothing to diff against.
	Baseline State = iota
	// Reporting means a rate was computed.
	Reporting
	// Stalled means the previous sample is not older than the current one,
	// so no rate can be computed this cycle.
	Stalled
)

// Observation is the outcome of feeding one raw counter value to the engine.
type Observation struct {
	State State
	// Rate is the per-second change; valid only when State is Reporting.
	Rate float64
	// Reset is set when the counter went backwards and Rate was clamped to 0.
	Reset bool
}

// Emit reports whether the observation yields a metric value.
func (o Observation) Emit() bool { return o.State == Reporting }

// Engine computes rates against a Store.
type Engine struct {
	store *Store
}

// NewEngine returns an engine backed by store. A nil store gets a fresh one.
func NewEngine(store *Store) *Engine {
	if store == nil {
		store = NewStore()
	}
	return &Engine{store: store}
}

// Store exposes the engine's previous-sample store.
func (e *Engine) Store() *Store { return e.store }

// Observe records value for key at time at and returns the rate since the
// previous observation. The stored sample is always overwritten.
func (e *Engine) Observe(key catalog.MetricKey, value float64, at time.Time) Observation {
	prev, ok := e.store.Swap(key, Sample{Value: value, At: at})
	if !ok {
		return Observation{State: Baseline}
	}
	return Rate(prev, Sample{Value: value, At: at})
}

// Rate computes the per-second change from prev to cur. A decreasing value
// is treated as a counter reset and clamped to zero.
func Rate(prev, cur Sample) Observation {
	elapsed := cur.At.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return Observation{State: Stalled}
	}
	diff := cur.Value - prev.Value
	if diff < 0 {
		return Observation{State: Reporting, Rate: 0, Reset: true}
	}
	return Observation{State: Reporting, Rate: diff / elapsed}
}
