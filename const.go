package ppos

import (
	"time"

	"golang.org/x/exp/constraints"
)

// Tunable constants fixed at build time.
const (
	// StackSize is carried for API/metrics compatibility with the
	// original kernel's fixed 64KiB stack allocation. Go goroutines grow
	// their own stacks on demand, so this is informational only.
	StackSize = 64 * 1024

	// TaskQuantum is the number of timer ticks a USER task may run
	// before being forcibly yielded.
	TaskQuantum = 20

	// TickPeriod is the Quantum Accountant's tick interval. The original
	// C kernel names this TIMER = 1000 microseconds.
	TickPeriod = time.Millisecond

	// TaskMaxPrio and TaskMinPrio bound current_priority and
	// initial_priority (inclusive).
	TaskMaxPrio = 20
	TaskMinPrio = -20

	// MainTaskID and DispatcherTaskID are the two reserved tids.
	MainTaskID       = 0
	DispatcherTaskID = 1
)

func clampPriority(p int) int {
	return clamp(p, TaskMinPrio, TaskMaxPrio)
}

// clamp bounds v into [lo, hi], generic over any integer type
// (constraints.Integer).
func clamp[T constraints.Integer](v, lo, hi T) T {
	switch {
	case v > hi:
		return hi
	case v < lo:
		return lo
	default:
		return v
	}
}
