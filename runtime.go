package ppos

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

// Runtime is the whole of the kernel state: the ready and sleep queues,
// the executing/dispatcher bookkeeping, and the big kernel lock that
// every critical section serializes on. The main task runs on the
// goroutine that calls Run and every Spawned task runs on a goroutine of
// its own; a single scheduling token lets at most one of them run task
// code at a time. Besides those, the Runtime starts one goroutine for the
// dispatcher and one for the timer, neither of which runs application
// code (see doc.go "Execution model").
type Runtime struct {
	// mu is the big kernel lock, grounded directly on the original
	// kernel's bkl_lock/bkl_unlock (ppos_bkl.c): a real mutex standing
	// in for what the C implementation built from disabling and
	// restoring signal delivery around a boolean flag. TryLock is the
	// Go equivalent of "if interrupts already disabled, skip this tick".
	mu sync.Mutex

	ready  *taskQueue
	sleepQ *taskQueue

	executing  *Task
	dispatcher *Task
	main       *Task

	tasks      map[int]*Task
	nextTID    int
	maxTasks   int
	systemTime uint64

	suspendedCount int

	scheduler *priorityScheduler

	toDispatcher chan *Task
	terminated   chan struct{}

	logger     Logger
	opts       *runtimeOptions
	onOverload func(error)
	onFatal    func(*InvariantError)

	stopTimer func()
	fatalErr  error
}

// New constructs a Runtime and its two reserved tasks: the main task
// (tid 0, representing whatever goroutine calls Run) and the dispatcher
// (tid 1, a SYSTEM task with its own goroutine). It also starts the
// timer service which drives the Quantum Accountant.
func New(opts ...RuntimeOption) *Runtime {
	cfg := resolveRuntimeOptions(opts)

	rt := &Runtime{
		ready:        newTaskQueue("readyQueue", readyCompare),
		sleepQ:       newTaskQueue("sleepQueue", sleepCompare),
		tasks:        make(map[int]*Task),
		nextTID:      2, // 0 and 1 are reserved
		maxTasks:     cfg.maxTasks,
		scheduler:    &priorityScheduler{},
		toDispatcher: make(chan *Task),
		terminated:   make(chan struct{}),
		logger:       cfg.logger,
		opts:         cfg,
		onOverload:   cfg.onOverload,
		onFatal:      cfg.onFatal,
	}

	rt.main = &Task{
		tid:     MainTaskID,
		typ:     TaskUser,
		state:   newAtomicState(StateExecuting),
		quantum: TaskQuantum,
		waiters: newTaskQueue("main.waiters", nil),
		resume:  make(chan struct{}),
	}
	rt.tasks[rt.main.tid] = rt.main
	rt.executing = rt.main

	// The dispatcher doesn't go through the normal taskMain trampoline —
	// it isn't dispatched by anyone, it IS the dispatcher. Its goroutine
	// runs dispatcherLoop directly, blocking on rt.toDispatcher rather
	// than its own (unused) resume channel.
	rt.dispatcher = &Task{
		tid:     DispatcherTaskID,
		typ:     TaskSystem,
		state:   newAtomicState(StateReady),
		waiters: newTaskQueue("dispatcher.waiters", nil),
	}
	rt.tasks[rt.dispatcher.tid] = rt.dispatcher
	go rt.dispatcherLoop()

	rt.stopTimer = rt.startTimer(cfg.tickPeriod)

	return rt
}

// Spawn creates a new USER task at the given priority, inserts it
// directly into the ready queue, and returns its TCB. Fails with
// ErrInvalidArgument if fn is nil or prio is outside
// [TaskMinPrio, TaskMaxPrio].
func (rt *Runtime) Spawn(prio int, fn TaskFunc, arg any) (*Task, error) {
	if fn == nil || prio < TaskMinPrio || prio > TaskMaxPrio {
		return nil, ErrInvalidArgument
	}

	rt.mu.Lock()
	if rt.maxTasks > 0 && len(rt.tasks) >= rt.maxTasks {
		rt.mu.Unlock()
		return nil, ErrOutOfMemory
	}
	tid := rt.nextTID
	rt.nextTID++

	t := &Task{
		tid:         tid,
		typ:         TaskUser,
		state:       newAtomicState(StateReady),
		initialPrio: int32(prio),
		currentPrio: int32(prio),
		quantum:     TaskQuantum,
		waiters:     newTaskQueue(fmt.Sprintf("task[%d].waiters", tid), nil),
		resume:      make(chan struct{}),
		routine:     fn,
		arg:         arg,
	}
	rt.tasks[tid] = t
	rt.ready.insert(t)
	rt.mu.Unlock()

	go rt.taskMain(t)
	rt.logf(LevelInfo, "dispatch", tid, "spawned at priority %d", prio)
	return t, nil
}

// Run executes mainFn as the body of the main task (tid 0) on the calling
// goroutine — the main task owns no stack of its own, so it borrows the
// host's. When mainFn returns without an explicit Exit call, Run performs
// the implicit Exit(0). Run then blocks until every task has finished and
// the dispatcher has nothing left to schedule — reinterpreted, for a
// runtime meant to be embedded in a host program, as "return control to
// the caller" rather than calling os.Exit.
func (rt *Runtime) Run(mainFn func(rt *Runtime)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InvariantError)
			if !ok {
				panic(r)
			}
			rt.handleFatal(ie)
			err = rt.fatalErr
		}
	}()

	mainFn(rt)
	if rt.main.State() != StateFinished {
		rt.Exit(0)
	}
	<-rt.terminated
	if rt.stopTimer != nil {
		rt.stopTimer()
	}
	return rt.fatalErr
}

// Current, GetPrio, SetPrio, Wait, Yield, Sleep, Exit and SysTime implement
// the Task API (a task's id is Task.ID). Those that act on the calling task
// use rt.executing, which at the moment of the call always aliases the
// calling goroutine's own Task: exactly one task executes at a time, and
// only the executing task's own goroutine ever calls these.

// SysTime returns the number of ticks elapsed since the Runtime started.
func (rt *Runtime) SysTime() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.systemTime
}

// Current returns the TCB of the calling task.
func (rt *Runtime) Current() *Task {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.executing
}

// GetPrio returns t's initial (static) priority. t == nil means "the
// calling task".
func (rt *Runtime) GetPrio(t *Task) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if t == nil {
		t = rt.executing
	}
	return int(t.initialPrio)
}

// SetPrio sets t's initial priority to p, preserving whatever aging
// offset t had already accumulated: delta := initial_priority -
// current_priority; initial priority = p; current priority = p - delta,
// so a task that has aged up while waiting doesn't lose that standing
// just because its static priority changed. Fails with ErrInvalidArgument
// if p is outside [TaskMinPrio, TaskMaxPrio].
func (rt *Runtime) SetPrio(t *Task, p int) error {
	if p < TaskMinPrio || p > TaskMaxPrio {
		return ErrInvalidArgument
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if t == nil {
		t = rt.executing
	}
	delta := t.initialPrio - t.currentPrio
	t.initialPrio = int32(p)
	t.currentPrio = int32(clampPriority(p - int(delta)))
	if t.queue == rt.ready {
		// re-sort: remove and reinsert now that currentPrio changed.
		rt.ready.remove(t)
		rt.ready.insert(t)
	}
	return nil
}

// Yield hands the scheduling token to the dispatcher with the calling
// task marked READY.
func (rt *Runtime) Yield() {
	rt.mu.Lock()
	t := rt.executing
	t.state.Store(StateReady)
	rt.mu.Unlock()
	rt.toDispatcher <- t
	<-t.resume
}

// Checkpoint is the cooperative preemption safepoint: a task running a
// long, self-contained loop without otherwise calling into the Task API
// should call this periodically. If the Quantum Accountant has marked the
// task's quantum expired, Checkpoint yields exactly as if the quantum had
// run out synchronously. Checkpoint is the only call that acts on an
// expired quantum. Yield, Sleep, Wait and Exit hand off to the dispatcher
// on every call, and the sync primitives hand off whenever they block; the
// scheduler resets the quantum at that point anyway. A primitive call that
// does not block does not hand off.
func (rt *Runtime) Checkpoint() {
	rt.mu.Lock()
	t := rt.executing
	expired := t.typ == TaskUser && t.preemptRequested.Load()
	rt.mu.Unlock()
	if expired {
		rt.Yield()
	}
}

// Sleep suspends the calling task until at least ms ticks have elapsed.
// ms <= 0 suspends for zero ticks, which in practice resolves on the
// dispatcher's very next pass — functionally equivalent to a Yield.
func (rt *Runtime) Sleep(ms int) {
	if ms < 0 {
		ms = 0
	}
	rt.mu.Lock()
	t := rt.executing
	t.sleepDeadline = rt.systemTime + uint64(ms)
	t.state.Store(StateSuspended)
	rt.sleepQ.insert(t)
	rt.suspendedCount++
	rt.mu.Unlock()
	rt.toDispatcher <- t
	<-t.resume
}

// Wait blocks the calling task until target finishes, then returns the
// value target passed to Exit. It returns ErrInvalidArgument for a nil
// target and ErrInvalidState if
// target has already finished (there is nothing left to join: the
// original exit_result was already delivered to whichever waiters were
// registered at the moment it finished).
func (rt *Runtime) Wait(target *Task) (int, error) {
	if target == nil {
		return -1, ErrInvalidArgument
	}
	rt.mu.Lock()
	if target.State() == StateFinished {
		rt.mu.Unlock()
		return -1, ErrInvalidState
	}
	t := rt.executing
	t.state.Store(StateSuspended)
	target.waiters.append(t)
	rt.suspendedCount++
	rt.mu.Unlock()

	rt.toDispatcher <- t
	<-t.resume

	rt.mu.Lock()
	result := t.waitingResult
	rt.mu.Unlock()
	return result, nil
}

// Exit finishes the calling task with the given result code. Waiters
// registered via Wait are released with this result.
// For any task other than main, Exit never returns to its caller — it
// ends the goroutine via runtime.Goexit after deferred cleanup, mirroring
// the original kernel's task_exit, which also never returns. For the main
// task, Exit returns normally so control can unwind back up to Run, which
// is what actually blocks until the whole runtime has drained.
func (rt *Runtime) Exit(code int) {
	rt.mu.Lock()
	t := rt.executing
	t.exitResult = code
	t.state.Store(StateFinished)
	rt.mu.Unlock()

	rt.toDispatcher <- t

	if t.tid == MainTaskID {
		return
	}
	runtime.Goexit()
}

// suspendLocked completes the suspend protocol for a task blocking on an
// arbitrary FIFO queue (used by the sync primitives in semaphore.go,
// barrier.go, mqueue.go). Caller must hold rt.mu; suspendLocked releases
// it and blocks until resumed.
func (rt *Runtime) suspendLocked(queue *taskQueue) {
	t := rt.executing
	t.state.Store(StateSuspended)
	queue.append(t)
	rt.suspendedCount++
	rt.mu.Unlock()

	rt.toDispatcher <- t
	<-t.resume
}

// awakeLocked moves t from queue to the ready queue. Caller must hold
// rt.mu.
func (rt *Runtime) awakeLocked(t *Task, queue *taskQueue) {
	queue.remove(t)
	t.state.Store(StateReady)
	rt.ready.insert(t)
	rt.suspendedCount--
}

// wakeAllLocked drains every waiter on queue onto the ready queue, used
// by primitive Destroy methods to implement destroy-wakes-everyone.
// Caller must hold rt.mu.
func (rt *Runtime) wakeAllLocked(queue *taskQueue) {
	for {
		t, ok := queue.popFront()
		if !ok {
			return
		}
		t.state.Store(StateReady)
		rt.ready.insert(t)
		rt.suspendedCount--
	}
}

// taskMain is the goroutine trampoline for every task except main: block
// until first dispatched, run the body with panic recovery, then perform
// the implicit exit.
func (rt *Runtime) taskMain(t *Task) {
	<-t.resume

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			// A container-state violation is a kernel-data-structure bug,
			// not a task-level failure: it's fatal to the whole runtime,
			// not just the task that happened to trip over it.
			if ie, ok := r.(*InvariantError); ok {
				rt.handleFatal(ie)
				return
			}
			rt.logf(LevelError, "dispatch", t.tid, "task panicked: %v", r)
			rt.mu.Lock()
			t.exitResult = -1
			t.state.Store(StateFinished)
			rt.mu.Unlock()
			rt.toDispatcher <- t
		}()
		t.routine(rt, t.arg)
	}()

	if t.State() != StateFinished {
		rt.Exit(0)
	}
}

// finishTask performs the dispatcher-side bookkeeping for a task that
// just transitioned to FINISHED: release waiters, log final accounting,
// retire the TCB. Caller must hold rt.mu.
func (rt *Runtime) finishTask(t *Task) {
	for {
		w, ok := t.waiters.popFront()
		if !ok {
			break
		}
		w.waitingResult = t.exitResult
		w.state.Store(StateReady)
		rt.ready.insert(w)
		rt.suspendedCount--
	}
	rt.logf(LevelInfo, "dispatch", t.tid, "finished: result=%d cpu_ticks=%d dispatches=%d", t.exitResult, t.totalTime, t.numCalls)
	delete(rt.tasks, t.tid)
}

// handleFatal is invoked wherever an *InvariantError panic is recovered
// (the dispatcher loop, a task's taskMain trampoline, Run): it records and
// logs the violation, then calls the OnFatal hook if one is configured and
// otherwise exits the process with status 1.
func (rt *Runtime) handleFatal(ie *InvariantError) {
	rt.fatalErr = ie
	rt.logf(LevelError, "dispatch", rt.dispatcher.tid, "container violation, terminating: %v", ie)
	if rt.onFatal != nil {
		rt.onFatal(ie)
		return
	}
	os.Exit(1)
}
