package ppos

import "sync/atomic"

// TaskState is one of the four states a TCB can occupy.
type TaskState int32

const (
	// StateReady means the task is linked into the ready queue, waiting
	// to be dispatched.
	StateReady TaskState = iota
	// StateExecuting means the task currently holds the scheduling
	// token; at most one task is ever in this state.
	StateExecuting
	// StateSuspended means the task is linked into some waiter list or
	// the sleep queue.
	StateSuspended
	// StateFinished means the task has called Exit and is no longer
	// linked into any queue.
	StateFinished
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateExecuting:
		return "EXECUTING"
	case StateSuspended:
		return "SUSPENDED"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// TaskType exempts SYSTEM tasks (currently only the dispatcher) from
// quantum-based preemption.
type TaskType int32

const (
	// TaskUser tasks are subject to quantum preemption and aging.
	TaskUser TaskType = iota
	// TaskSystem tasks are never preempted by the Quantum Accountant.
	TaskSystem
)

func (t TaskType) String() string {
	if t == TaskSystem {
		return "SYSTEM"
	}
	return "USER"
}

// atomicState is a lock-free holder for a TaskState: plain atomic
// load/store, no transition validation (the big kernel lock is what
// actually protects correctness; this just gives lock-free readers, e.g.
// for diagnostics, a safe view).
type atomicState struct {
	v atomic.Int32
}

func newAtomicState(initial TaskState) *atomicState {
	s := &atomicState{}
	s.v.Store(int32(initial))
	return s
}

func (s *atomicState) Load() TaskState {
	return TaskState(s.v.Load())
}

func (s *atomicState) Store(state TaskState) {
	s.v.Store(int32(state))
}
