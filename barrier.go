package ppos

// barrierState is a Barrier's lifecycle state.
type barrierState int32

const (
	barrierInitialized barrierState = iota
	barrierFinished
)

// Barrier is a reusable join barrier: n tasks call Join; once all n have
// arrived, every one of them is released simultaneously and the count
// resets for the next round.
type Barrier struct {
	state    barrierState
	n        int
	initialN int
	waiters  *taskQueue
}

// NewBarrier creates an INITIALIZED barrier for n joiners.
func NewBarrier(n int) *Barrier {
	return &Barrier{
		state:    barrierInitialized,
		n:        n,
		initialN: n,
		waiters:  newTaskQueue("barrier.waiters", nil),
	}
}

// Join blocks the calling task until n tasks (including this one) have
// called Join, then releases all of them at once. Returns ErrDestroyed
// if the barrier is destroyed while blocked, or is already FINISHED on
// entry.
func (b *Barrier) Join(rt *Runtime) error {
	rt.mu.Lock()
	if b.state == barrierFinished {
		rt.mu.Unlock()
		return ErrDestroyed
	}

	b.n--
	if b.n <= 0 {
		b.n = b.initialN
		rt.wakeAllLocked(b.waiters)
		rt.mu.Unlock()
		return nil
	}

	rt.suspendLocked(b.waiters)
	// The releasing Join call wakes every waiter directly (no
	// destroy-vs-release ambiguity to re-test: a woken waiter either
	// observes the barrier released it, or the barrier was destroyed out
	// from under it).
	rt.mu.Lock()
	state := b.state
	rt.mu.Unlock()
	if state == barrierFinished {
		return ErrDestroyed
	}
	return nil
}

// Destroy marks the barrier FINISHED and wakes every blocked joiner; each
// observes ErrDestroyed from its pending Join call.
func (b *Barrier) Destroy(rt *Runtime) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.wakeAllLocked(b.waiters)
	b.state = barrierFinished
}
