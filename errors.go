package ppos

import (
	"errors"
	"fmt"
)

// Sentinel errors returned from public API calls. All are returned as
// plain errors (never panics); callers match them with errors.Is.
var (
	// ErrInvalidArgument covers a nil task function or Wait target, a
	// priority outside [TaskMinPrio, TaskMaxPrio], or a message-queue
	// capacity below 1.
	ErrInvalidArgument = errors.New("ppos: invalid argument")

	// ErrInvalidState covers Init on a semaphore that is not CREATED, Up
	// on a semaphore that was never Init'd, or Wait on a FINISHED task.
	ErrInvalidState = errors.New("ppos: invalid state")

	// ErrOutOfMemory is returned by Spawn when the task limit set with
	// WithMaxTasks has been reached; no partial state persists.
	ErrOutOfMemory = errors.New("ppos: out of memory")

	// ErrDestroyed is returned by a semaphore, barrier, or message-queue
	// operation once that primitive has been destroyed, whether the
	// destruction came before the call or woke the caller while it was
	// blocked.
	ErrDestroyed = errors.New("ppos: primitive destroyed")
)

// InvariantError reports a container-state violation: a scheduler data
// structure was found in a state that should be impossible (double
// insertion, removal of an absent element, a missing dispatcher). These
// are fatal: the runtime logs and terminates rather than returning an
// error to a caller, since a caller cannot meaningfully recover from
// corrupted kernel state.
type InvariantError struct {
	// Op names the operation that detected the violation (e.g.
	// "readyQueue.insert", "sleepQueue.remove").
	Op string
	// Detail is a short, human-readable description of what was
	// observed.
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ppos: invariant violation in %s: %s", e.Op, e.Detail)
}

// fatalf panics with an *InvariantError. The dispatcher loop, the taskMain
// trampoline and Run recover it and hand it to Runtime.handleFatal.
func fatalf(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// WrapError wraps cause with a message, preserving errors.Is/As matching
// against cause.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
