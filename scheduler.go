package ppos

// priorityScheduler picks the ready queue's head as the candidate, ages
// every other ready task one step toward TaskMinPrio (the most urgent
// priority), and resets
// the candidate's current priority and quantum before it runs again. It
// holds no state of its own — the ready queue already orders by current
// priority (taskQueue's readyCompare) — but is kept as its own type
// rather than inlined into Runtime, keeping scheduling policy separate
// from dispatch mechanics.
type priorityScheduler struct{}

// next selects and prepares the next task to run, or returns nil if the
// ready queue is empty. Caller must hold rt.mu.
func (priorityScheduler) next(rt *Runtime) *Task {
	candidate, ok := rt.ready.popFront()
	if !ok {
		return nil
	}

	rt.ready.forEach(func(t *Task) {
		aged := int(t.currentPrio) - 1
		rt.ready.remove(t)
		t.currentPrio = int32(clampPriority(aged))
		rt.ready.insert(t)
	})

	candidate.currentPrio = candidate.initialPrio
	candidate.quantum = TaskQuantum
	candidate.preemptRequested.Store(false)
	return candidate
}
