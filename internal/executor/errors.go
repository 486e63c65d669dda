package executor

import "fmt"

// Reason classifies why a command produced no output.
type Reason string

const (
	ReasonNotFound   Reason = "not_found"
	ReasonStart      Reason = "start"
	ReasonExitStatus Reason = "exit_status"
	ReasonTimeout    Reason = "timeout"
	ReasonOutput     Reason = "output"
)

// ExecutionError reports a failed command run. The command contributes no
// metrics to the cycle; other commands are unaffected.
type ExecutionError struct {
	Command  string
	Reason   Reason
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Reason == ReasonExitStatus {
		return fmt.Sprintf("command %s: exit status %d: %v", e.Command, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %s: %s: %v", e.Command, e.Reason, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Spawn reports whether the process never started.
func (e *ExecutionError) Spawn() bool {
	return e.Reason == ReasonNotFound || e.Reason == ReasonStart
}
