package ppos

import (
	"fmt"
	"time"
)

// dispatcherLoop is the body of the dispatcher task (tid 1, SYSTEM). It
// never appears in the ready queue itself: every other task hands it
// control by sending itself on rt.toDispatcher and blocking on its own
// resume channel, at which point exactly one goroutine — this one — is
// doing anything besides waiting.
func (rt *Runtime) dispatcherLoop() {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InvariantError); ok {
				rt.handleFatal(ie)
				return
			}
			panic(r)
		}
	}()

	var outgoing *Task
	for {
		if outgoing == nil {
			outgoing = <-rt.toDispatcher
		}

		rt.mu.Lock()
		rt.dispatcher.state.Store(StateExecuting)
		rt.executing = rt.dispatcher
		rt.dispatcher.numCalls++

		switch outgoing.state.Load() {
		case StateReady:
			rt.ready.insert(outgoing)
		case StateFinished:
			rt.finishTask(outgoing)
		case StateSuspended:
			// already linked into whatever queue put it to sleep.
		}
		outgoing = nil

		rt.wakeSleepersLocked()

		candidate := rt.scheduler.next(rt)
		if candidate == nil {
			if rt.ready.empty() && rt.sleepQ.empty() && rt.suspendedCount == 0 {
				rt.mu.Unlock()
				rt.terminate()
				return
			}
			// A sleeper is pending but nothing is runnable to drive a
			// checkpoint. Nobody else is going to advance system_time
			// through us, so poll briefly rather than busy-spin.
			rt.mu.Unlock()
			rt.reportIdle()
			time.Sleep(rt.opts.tickPeriod)
			continue
		}

		candidate.numCalls++
		candidate.state.Store(StateExecuting)
		rt.executing = candidate
		rt.mu.Unlock()

		candidate.resume <- struct{}{}
	}
}

// wakeSleepersLocked moves every task whose deadline has arrived from the
// sleep queue to the ready queue. Caller must hold rt.mu.
func (rt *Runtime) wakeSleepersLocked() {
	for {
		t := rt.sleepQ.front()
		if t == nil || t.sleepDeadline > rt.systemTime {
			return
		}
		rt.sleepQ.remove(t)
		t.sleepDeadline = 0
		t.state.Store(StateReady)
		rt.ready.insert(t)
		rt.suspendedCount--
	}
}

// reportIdle rate-limits the "polling for a sleeper with nothing else
// runnable" diagnostic so a workload with one lone sleeping task and
// nothing else doesn't flood the log once per poll.
func (rt *Runtime) reportIdle() {
	if rt.opts.rateLimiter == nil {
		return
	}
	if _, allowed := rt.opts.rateLimiter.Allow("dispatcher-idle-poll"); allowed {
		rt.logf(LevelDebug, "dispatch", rt.dispatcher.tid, "idle poll: ready queue empty, waiting on sleep queue")
		if rt.onOverload != nil {
			rt.onOverload(fmt.Errorf("ppos: dispatcher idle poll, %d task(s) sleeping", rt.sleepQ.len()))
		}
	}
}

// terminate closes the terminated channel, releasing Run. Called once the
// ready queue, sleep queue, and suspended count are all simultaneously
// empty — no task can ever become runnable again.
func (rt *Runtime) terminate() {
	rt.logf(LevelInfo, "dispatch", rt.dispatcher.tid, "no runnable or pending tasks remain, shutting down")
	close(rt.terminated)
}
