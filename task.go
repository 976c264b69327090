package ppos

import "sync/atomic"

// TaskFunc is a task body. rt is the owning Runtime, threaded through
// explicitly rather than via a package-level global so a process can host
// more than one independent Runtime; arg is whatever was passed to Spawn.
//
// If TaskFunc returns normally, the task performs an implicit Exit(0) —
// the Go equivalent of the original kernel's trampoline that wires
// task_exit(0) after routine() returns.
type TaskFunc func(rt *Runtime, arg any)

// Task is the Task Control Block (TCB). Every field that participates in
// scheduling decisions is only ever mutated while the Runtime's big
// kernel lock is held, except state, which uses an atomic holder so
// external diagnostics can read it lock-free.
type Task struct {
	tid   int
	typ   TaskType
	state *atomicState

	initialPrio int32
	currentPrio int32
	quantum     int32

	totalTime        uint64
	lastDispatchTime uint64
	sleepDeadline    uint64
	numCalls         uint64
	exitResult       int

	// waiters holds tasks blocked in Wait(this task), woken with
	// exitResult once this task finishes.
	waiters *taskQueue
	// waitingResult is populated by the finishing task this one waited
	// on, and read once this task resumes from Wait.
	waitingResult int

	// queue linkage: a Task is a node in at most one taskQueue at a time,
	// enforced by taskQueue itself.
	prev, next *Task
	queue      *taskQueue

	// goroutine plumbing: resume is the rendezvous channel the
	// dispatcher sends on to hand this task the scheduling token.
	resume  chan struct{}
	routine TaskFunc
	arg     any

	preemptRequested atomic.Bool
}

// ID returns the task's tid.
func (t *Task) ID() int { return t.tid }

// Type reports whether the task is USER or SYSTEM.
func (t *Task) Type() TaskType { return t.typ }

// State returns the task's current state. Safe to call from any
// goroutine.
func (t *Task) State() TaskState { return t.state.Load() }

// TotalTime returns cumulative CPU time charged to this task, in timer
// ticks (milliseconds at the default TickPeriod). Only meaningful once the
// task has been dispatched at least once.
func (t *Task) TotalTime() uint64 { return t.totalTime }

// NumCalls returns the number of times this task has been dispatched.
func (t *Task) NumCalls() uint64 { return t.numCalls }

// ExitResult returns the value passed to Exit, valid once State() ==
// StateFinished.
func (t *Task) ExitResult() int { return t.exitResult }
