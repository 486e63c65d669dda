package collector

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/executor"
	"github.com/Guliveer/unixstat-agent/internal/models"
	"github.com/Guliveer/unixstat-agent/internal/normalize"
	"github.com/Guliveer/unixstat-agent/internal/parser"
	"github.com/Guliveer/unixstat-agent/internal/tables"
)

// fakeRunner serves canned output keyed by the full command line.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: make(map[string]string), errs: make(map[string]error)}
}

func (f *fakeRunner) set(argv, out string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[argv] = strings.TrimPrefix(out, "\n")
}

func (f *fakeRunner) fail(argv string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[argv] = err
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	argv := strings.Join(append([]string{name}, args...), " ")
	if err, ok := f.errs[argv]; ok {
		return nil, err
	}
	out, ok := f.outputs[argv]
	if !ok {
		return nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return []byte(out), nil
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func find(metrics []models.Metric, command, dimension, name, unit string) (models.Metric, bool) {
	for _, m := range metrics {
		if m.Command == command && m.Dimension == dimension && m.Name == name && m.Unit == unit {
			return m, true
		}
	}
	return models.Metric{}, false
}

func commandsIn(metrics []models.Metric) map[string]bool {
	out := make(map[string]bool)
	for _, m := range metrics {
		out[m.Command] = true
	}
	return out
}

func solarisRunner() *fakeRunner {
	r := newFakeRunner()
	r.set("df -k", `
Filesystem            kbytes    used   avail capacity  Mounted on
/dev/dsk/c0t0d0s0    9600457 4032580 5471873    43%    /
/dev/dsk/c0t0d0s7   28233837 1234567 26717032     5%    /export/home
`)
	r.set("iostat -x", `
                 extended device statistics
device       r/s    w/s   kr/s   kw/s wait actv  svc_t  %w  %b
sd0          0.1    0.6    1.2    5.3  0.0  0.0   10.5   0   1
`)
	r.set("iostat -c", `
     cpu
 us sy wt id
  1  2  0 97
`)
	r.set("netstat -I", `
Name  Mtu  Net/Dest      Address        Ipkts  Ierrs Opkts  Oerrs Collis Queue
lo0   8232 loopback      localhost      1000   0     1000   0     0      0
hme0  1500 myhost        myhost         5000   0     3000   0     0      0
`)
	r.set("/usr/sbin/swap -s",
		"total: 106512k bytes allocated + 31192k reserved = 137704k used, 1794792k available\n")
	r.set("top -b", `
last pid:  4242;  load averages:  0.03,  0.04,  0.05;  up 12+03:04:05  10:11:12
58 processes: 57 sleeping, 1 on cpu
CPU states: 99.0% idle,  0.5% user,  0.5% kernel,  0.0% iowait,  0.0% swap
Kernel: 200 ctxsw, 300 intr, 100 syscall
Memory: 4096M phys mem, 2048M free mem, 8192M total swap, 8000M free swap
`)
	r.set("vmstat", `
 kthr      memory            page            disk          faults      cpu
 r b w   swap  free  re  mf pi po fr de sr s0 s1 s2 s3   in   sy   cs us sy id
 0 0 0 1867336 411760 10 44 0  0  0  0  0  0  0  0  0  413  387  265  1  1 98
`)
	return r
}

func TestCollect_SolarisCycle(t *testing.T) {
	clock := newClock()
	c := New(tables.Solaris(), WithRunner(solarisRunner()), WithClock(clock.Now))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Errors)

	m, ok := find(res.Metrics, "df", "/export/home", "Used", "kb")
	require.True(t, ok)
	assert.Equal(t, 1234567.0, m.Value)
	assert.Equal(t, "Disk/export/home/Used", m.Path())

	m, ok = find(res.Metrics, "df", "/", "Used", "%")
	require.True(t, ok)
	assert.Equal(t, 43.0, m.Value)

	m, ok = find(res.Metrics, "vmstat", "", "Free", "kb")
	require.True(t, ok)
	assert.Equal(t, 411760.0*4096, m.Value)

	m, ok = find(res.Metrics, "top", "", "1 Minute", "load")
	require.True(t, ok)
	assert.Equal(t, 0.03, m.Value)

	// netstat counters are still at baseline; only the gauge is reported.
	_, ok = find(res.Metrics, "netstat", "hme0", "Receive/Packets", "packets")
	assert.False(t, ok)
	_, ok = find(res.Metrics, "netstat", "hme0", "Queue", "packets")
	assert.True(t, ok)

	// Output order follows command registration order.
	var order []string
	for _, m := range res.Metrics {
		if len(order) == 0 || order[len(order)-1] != m.Command {
			order = append(order, m.Command)
		}
	}
	assert.Equal(t, []string{"df", "iostat", "iostatCPU", "netstat", "swap", "top", "vmstat"}, order)
}

func TestCollect_MissingSwapIsolated(t *testing.T) {
	r := solarisRunner()
	r.fail("/usr/sbin/swap -s", &exec.Error{Name: "/usr/sbin/swap", Err: exec.ErrNotFound})
	c := New(tables.Solaris(), WithRunner(r), WithClock(newClock().Now), WithConcurrency(3))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, res.Errors[0], &execErr)
	assert.Equal(t, "swap", execErr.Command)
	assert.Equal(t, executor.ReasonNotFound, execErr.Reason)

	got := commandsIn(res.Metrics)
	for _, key := range []string{"df", "iostat", "vmstat", "top", "netstat"} {
		assert.True(t, got[key], "expected metrics from %s", key)
	}
	assert.False(t, got["swap"])
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.errors.WithLabelValues("swap", kindExecution)))
}

func TestCollect_NoCommandCouldStart(t *testing.T) {
	c := New(tables.Solaris(), WithRunner(newFakeRunner()))
	res, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrNoCommandsRan)
	assert.Empty(t, res.Metrics)
	assert.Len(t, res.Errors, len(tables.Solaris().Commands()))
}

func TestCollect_ParseErrorIsolated(t *testing.T) {
	r := solarisRunner()
	r.set("vmstat", "vmstat: garbled\n\n\n")
	c := New(tables.Solaris(), WithRunner(r))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	var perr *parser.ParseError
	assert.ErrorAs(t, res.Errors[0], &perr)
	assert.False(t, commandsIn(res.Metrics)["vmstat"])
	assert.True(t, commandsIn(res.Metrics)["df"])
}

func deltaIostatTable(t *testing.T) *catalog.Table {
	t.Helper()
	tbl := catalog.NewTable("test")
	require.NoError(t, tbl.RegisterCommand("iostat", catalog.CommandDefinition{
		Command: []string{"iostat", "-x"},
		Mode:    catalog.RegexMulti,
		Rules: []catalog.Rule{
			catalog.MustRule(`(\w+)\s+([0-9.]+)`, catalog.Dimension, "r-s"),
		},
	}))
	require.NoError(t, tbl.RegisterMetric("iostat", "r-s", catalog.MetricDescriptor{
		Category: "DiskIO", Name: "Reads per Second", Unit: "transfers/s", Kind: catalog.Delta, Multiplier: 1,
	}))
	return tbl.Freeze()
}

func TestCollect_DeltaRate(t *testing.T) {
	clock := newClock()
	r := newFakeRunner()
	c := New(deltaIostatTable(t), WithRunner(r), WithClock(clock.Now))

	r.set("iostat -x", "sd0 10\n")
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Metrics, "baseline cycle must not report a rate")

	clock.Advance(5 * time.Second)
	r.set("iostat -x", "sd0 25\n")
	res, err = c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, "sd0", res.Metrics[0].Dimension)
	assert.InDelta(t, 3.0, res.Metrics[0].Value, 1e-9)
}

func TestCollect_CounterResetClamped(t *testing.T) {
	clock := newClock()
	r := newFakeRunner()
	c := New(deltaIostatTable(t), WithRunner(r), WithClock(clock.Now))

	r.set("iostat -x", "sd0 100\n")
	_, err := c.Collect(context.Background())
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	r.set("iostat -x", "sd0 40\n")
	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, 0.0, res.Metrics[0].Value)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.resets.WithLabelValues("iostat")))
}

func TestCollect_NetstatIndependentDeltaState(t *testing.T) {
	clock := newClock()
	r := solarisRunner()
	tbl, err := tables.Solaris().Subset([]string{"netstat"})
	require.NoError(t, err)
	c := New(tbl, WithRunner(r), WithClock(clock.Now))

	_, err = c.Collect(context.Background())
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	r.set("netstat -I", `
Name  Mtu  Net/Dest      Address        Ipkts  Ierrs Opkts  Oerrs Collis Queue
lo0   8232 loopback      localhost      1100   0     1050   0     0      0
hme0  1500 myhost        myhost         9000   0     3000   0     0      0
`)
	res, err := c.Collect(context.Background())
	require.NoError(t, err)

	lo, ok := find(res.Metrics, "netstat", "lo0", "Receive/Packets", "packets")
	require.True(t, ok)
	assert.InDelta(t, 10.0, lo.Value, 1e-9)

	hme, ok := find(res.Metrics, "netstat", "hme0", "Receive/Packets", "packets")
	require.True(t, ok)
	assert.InDelta(t, 400.0, hme.Value, 1e-9)

	hmeOut, ok := find(res.Metrics, "netstat", "hme0", "Transmit/Packets", "packets")
	require.True(t, ok)
	assert.Equal(t, 0.0, hmeOut.Value)
}

func TestCollect_MissingDescriptorDropsOnlyField(t *testing.T) {
	tbl := catalog.NewTable("test")
	require.NoError(t, tbl.RegisterCommand("swap", catalog.CommandDefinition{
		Command: []string{"/usr/sbin/swap", "-s"},
		Rules:   []catalog.Rule{catalog.MustRule(`(\d+) (\d+)`, "swused", "mystery")},
	}))
	require.NoError(t, tbl.RegisterMetric("swap", "swused", catalog.MetricDescriptor{
		Category: "Swap", Name: "Used", Unit: "kb",
	}))
	r := newFakeRunner()
	r.set("/usr/sbin/swap -s", "12 34\n")
	c := New(tbl, WithRunner(r))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, 12.0, res.Metrics[0].Value)

	require.Len(t, res.Errors, 1)
	var lerr *CatalogLookupError
	require.ErrorAs(t, res.Errors[0], &lerr)
	assert.Equal(t, "mystery", lerr.Key.Field)
}

func TestCollect_BadValueDropsOnlyMetric(t *testing.T) {
	tbl := catalog.NewTable("test")
	require.NoError(t, tbl.RegisterCommand("top", catalog.CommandDefinition{
		Command: []string{"top", "-b"},
		Rules:   []catalog.Rule{catalog.MustRule(`load: (\S+) (\S+)`, "la1", "la5")},
	}))
	require.NoError(t, tbl.RegisterMetric("top", "la1", catalog.MetricDescriptor{Category: "LoadAverage", Name: "1 Minute"}))
	require.NoError(t, tbl.RegisterMetric("top", "la5", catalog.MetricDescriptor{Category: "LoadAverage", Name: "5 Minute"}))
	r := newFakeRunner()
	r.set("top -b", "load: n/a 0.50\n")
	c := New(tbl, WithRunner(r))

	res, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, "5 Minute", res.Metrics[0].Name)
	require.Len(t, res.Errors, 1)
	var perr *normalize.MetricParseError
	assert.ErrorAs(t, res.Errors[0], &perr)
}

func TestCollectors_IndependentState(t *testing.T) {
	clock := newClock()
	r := newFakeRunner()
	r.set("iostat -x", "sd0 10\n")

	a := New(deltaIostatTable(t), WithRunner(r), WithClock(clock.Now))
	b := New(deltaIostatTable(t), WithRunner(r), WithClock(clock.Now))

	_, err := a.Collect(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Second)
	res, err := b.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Metrics, "b has its own store and starts at baseline")

	res, err = a.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Metrics, 1)
}

func TestCollectCommand_UnknownKey(t *testing.T) {
	c := New(tables.Solaris(), WithRunner(newFakeRunner()))
	_, errs := c.CollectCommand(context.Background(), "prstat")
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], catalog.ErrUnknownCommand), fmt.Sprint(errs[0]))
}
