package ppos

// semState is a Semaphore's lifecycle state.
type semState int32

const (
	semCreated semState = iota
	semInitialized
	semFinished
)

// Semaphore is a counting semaphore, built entirely on Runtime's
// suspend/awake protocol and the big kernel lock — there is no separate
// lock inside Semaphore itself. Every critical region that mutates the
// scalar counter runs with the big kernel lock held, so it takes effect
// atomically with respect to every other task.
type Semaphore struct {
	state   semState
	lock    int
	waiters *taskQueue
}

// NewSemaphore allocates a semaphore in the CREATED state. It must be
// Init'd before use.
func NewSemaphore() *Semaphore {
	return &Semaphore{state: semCreated, waiters: newTaskQueue("semaphore.waiters", nil)}
}

// Init transitions a CREATED semaphore to INITIALIZED with the given
// starting count. Returns ErrInvalidState if the semaphore is not
// CREATED (already initialized, or destroyed).
func (s *Semaphore) Init(rt *Runtime, value int) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if s.state != semCreated {
		return ErrInvalidState
	}
	s.lock = value
	s.state = semInitialized
	return nil
}

// Up releases the semaphore: wake the longest-waiting blocked task, if
// any, then increment the count.
func (s *Semaphore) Up(rt *Runtime) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if s.state == semFinished {
		return ErrDestroyed
	}
	if s.state != semInitialized {
		return ErrInvalidState
	}
	if head := s.waiters.front(); head != nil {
		rt.awakeLocked(head, s.waiters)
	}
	s.lock++
	return nil
}

// Down acquires the semaphore, blocking the calling task until the count
// is positive or the semaphore is destroyed. Returns ErrDestroyed if the
// semaphore was destroyed while blocked, or is already FINISHED on entry.
func (s *Semaphore) Down(rt *Runtime) error {
	rt.mu.Lock()
	for {
		if s.state == semFinished {
			rt.mu.Unlock()
			return ErrDestroyed
		}
		if s.lock > 0 {
			s.lock--
			rt.mu.Unlock()
			return nil
		}
		// suspendLocked releases rt.mu and blocks until resumed; on
		// return we re-acquire it ourselves to re-test the condition,
		// since a destroy may be what woke us rather than a Up call.
		rt.suspendLocked(s.waiters)
		rt.mu.Lock()
	}
}

// Destroy marks the semaphore FINISHED and wakes every blocked task; each
// observes ErrDestroyed from its pending Down call.
func (s *Semaphore) Destroy(rt *Runtime) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.wakeAllLocked(s.waiters)
	s.state = semFinished
}
