// Package executor runs the external commands declared in a catalog table
// and returns their standard output as lines.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
)

// DefaultTimeout bounds a single command when the caller sets none.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Run waits for output pipes to close after the
// process was killed.
const waitDelay = time.Second

// Runner abstracts process execution so tests can supply canned output.
type Runner interface {
	// Run executes name with args and returns its standard output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct{}

// Run starts the process and waits for it. When ctx expires the process
// and everything it spawned are killed.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	killGroupOnCancel(cmd)
	cmd.WaitDelay = waitDelay
	return cmd.Output()
}

// LookPath reports whether the executable can be resolved on this host.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Executor runs command definitions with a per-command timeout.
type Executor struct {
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an Executor. A nil runner uses ExecRunner, a non-positive
// timeout uses DefaultTimeout.
func New(runner Runner, timeout time.Duration, logger *zap.Logger) *Executor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{runner: runner, timeout: timeout, logger: logger}
}

// Run executes the definition registered under key and returns its output
// lines with the header lines removed and the line limit applied.
// Any failure is returned as an *ExecutionError.
func (e *Executor) Run(ctx context.Context, key string, def catalog.CommandDefinition) ([]string, error) {
	if def.Executable() == "" {
		return nil, &ExecutionError{Command: key, Reason: ReasonStart, Err: errors.New("empty command line")}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := e.runner.Run(runCtx, def.Executable(), def.Args()...)
	if err != nil {
		return nil, classify(runCtx, key, err)
	}
	e.logger.Debug("Command finished",
		zap.String("command", key),
		zap.Strings("argv", def.Command),
		zap.Duration("took", time.Since(start)),
		zap.Int("bytes", len(out)))

	lines, err := splitLines(out)
	if err != nil {
		return nil, &ExecutionError{Command: key, Reason: ReasonOutput, Err: err}
	}
	return trim(lines, def.HeaderLines, def.LineLimit), nil
}

// classify maps a runner error onto an ExecutionError reason.
func classify(ctx context.Context, key string, err error) *ExecutionError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ExecutionError{Command: key, Reason: ReasonTimeout, Err: err}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &ExecutionError{Command: key, Reason: ReasonNotFound, Err: err}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e := &ExecutionError{Command: key, Reason: ReasonExitStatus, ExitCode: exitErr.ExitCode(), Err: err}
		if stderr := strings.TrimSpace(string(exitErr.Stderr)); stderr != "" {
			e.Err = fmt.Errorf("%w: %s", err, stderr)
		}
		return e
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		// Runner already classified the failure.
		cp := *execErr
		cp.Command = key
		return &cp
	}
	return &ExecutionError{Command: key, Reason: ReasonStart, Err: err}
}

func splitLines(out []byte) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t\r"))
	}
	return lines, sc.Err()
}

// trim drops the first header lines and keeps at most limit lines after
// them. A zero limit keeps everything.
func trim(lines []string, header, limit int) []string {
	if header >= len(lines) {
		return nil
	}
	if header > 0 {
		lines = lines[header:]
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return lines
}
