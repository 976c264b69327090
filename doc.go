// Package ppos implements a user-space cooperative-multitasking kernel that
// runs entirely inside a single host process.
//
// # Architecture
//
// The runtime is built around a [Runtime] core that owns every task's
// control block, a priority-aging scheduler, a dedicated dispatcher task
// that mediates every handoff of control, and a 1ms Quantum Accountant tick
// that enforces preemptive time-slicing for user tasks. On top of that core,
// [Runtime] provides [Semaphore], [Barrier] and [MessageQueue] — blocking
// synchronization primitives built on the same suspend/awake protocol used
// by [Runtime.Wait] (join) and [Runtime.Sleep].
//
// Tasks are modeled as goroutines gated by a single scheduling token: at
// most one task's goroutine is ever actually running application code at a
// time, matching the single-logical-thread semantics of the original
// ucontext-based kernel this package reimplements. Quantum-based preemption
// is delivered cooperatively at the [Runtime.Checkpoint] safepoint, since Go
// does not expose asynchronous goroutine suspension.
//
// # Execution model
//
// A task transfers control away from itself at exactly these points:
// [Runtime.Yield], [Runtime.Exit], [Runtime.Wait], [Runtime.Sleep], a
// blocking [Semaphore.Down], a blocking [Barrier.Join], a blocking
// [MessageQueue.Send]/[MessageQueue.Recv], and a call to
// [Runtime.Checkpoint] when its quantum has expired. Every one of those hands control to the
// dispatcher task, which reconciles the outgoing task's new state, wakes any
// sleepers whose deadline has passed, asks the scheduler for the next
// candidate, and switches to it.
//
// # Usage
//
//	rt := ppos.New()
//	err := rt.Run(func(rt *ppos.Runtime) {
//	    rt.Spawn(0, func(rt *ppos.Runtime, arg any) {
//	        fmt.Println("hello from a task")
//	    }, nil)
//	})
package ppos
