package ppos

// tick implements the Quantum Accountant, invoked once per TickPeriod by
// the timer service. It is best-effort: if the big kernel lock is
// currently held (a critical section is in progress elsewhere — a task
// mid-suspend, the dispatcher mid-schedule), the tick is simply dropped,
// matching the original's "if interrupts_disabled, return" rather than
// blocking and risking the timer goroutine piling up.
//
// A genuine asynchronous preemption — reaching into a goroutine that is
// presently executing arbitrary user code and yanking control away from
// it — has no safe equivalent in Go. tick can only flag the currently
// executing task as having an expired quantum; the actual handoff happens
// the next time that task calls Checkpoint (see Runtime.Checkpoint) or
// makes a call that hands off to the dispatcher on its own (Yield, Sleep,
// Wait, Exit, or a primitive call that blocks). This is the one
// deliberate, documented departure from the original's signal-based
// preemption.
func (rt *Runtime) tick() {
	if !rt.mu.TryLock() {
		return
	}
	defer rt.mu.Unlock()

	rt.systemTime++

	t := rt.executing
	if t == nil {
		return
	}
	if t.lastDispatchTime != 0 {
		t.totalTime += rt.systemTime - t.lastDispatchTime
	}
	t.lastDispatchTime = rt.systemTime

	if t.typ == TaskSystem {
		return
	}

	t.quantum--
	if t.quantum <= 0 || !rt.sleepQ.empty() {
		t.preemptRequested.Store(true)
	}
}
