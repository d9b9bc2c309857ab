package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/reactor/sim/model"
	"github.com/sarchlab/reactor/sim/timing"
)

var (
	// ErrTerminated is returned when a command is submitted to an engine
	// that has already terminated.
	ErrTerminated = errors.New("engine: simulation terminated")

	// ErrExecution wraps errors and panics raised while executing reactions,
	// commands, or monitors.
	ErrExecution = errors.New("engine: execution failed")

	// ErrBatchTask wraps the failures of batch tasks. Failed batches are not
	// recovered.
	ErrBatchTask = errors.New("engine: batch task failed")
)

// A SchedulingError reports a reaction that was selected with a time earlier
// than the simulation clock. It indicates a bug in how the time of the
// reaction is computed.
type SchedulingError struct {
	Reaction model.Reaction
	Tau      timing.VTimeInSec
	Now      timing.VTimeInSec
	Step     uint64
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf(
		"engine: cannot run %s @ %s in the past, now %s, step %d",
		model.NameOf(e.Reaction), e.Tau, e.Now, e.Step,
	)
}

// A TerminalError is the error of a simulation that failed and then got more
// errors while shutting down.
type TerminalError struct {
	Primary    error
	Suppressed []error
}

func (e *TerminalError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Primary.Error()
	}

	msgs := make([]string, 0, len(e.Suppressed))
	for _, s := range e.Suppressed {
		msgs = append(msgs, s.Error())
	}

	return fmt.Sprintf("%s (suppressed: %s)",
		e.Primary, strings.Join(msgs, "; "))
}

func (e *TerminalError) Unwrap() []error {
	return append([]error{e.Primary}, e.Suppressed...)
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: panic: %w", ErrExecution, err)
	}

	return fmt.Errorf("%w: panic: %v", ErrExecution, r)
}
