package ppos

import "golang.org/x/exp/slices"

// Tasks returns a snapshot of every task currently known to the runtime
// (every tid that hasn't finished and been retired), sorted by tid. It
// exists mainly to make "every non-finished task is present in exactly
// one of {ready queue, sleep queue, some waiter queue, or EXECUTING}"
// directly assertable from tests without reaching into unexported queue
// internals.
func (rt *Runtime) Tasks() []*Task {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]*Task, 0, len(rt.tasks))
	for _, t := range rt.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Task) int { return a.tid - b.tid })
	return out
}

// ReadyQueueLen and SleepQueueLen are small introspection helpers used by
// tests asserting on queue occupancy.
func (rt *Runtime) ReadyQueueLen() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.ready.len()
}

func (rt *Runtime) SleepQueueLen() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.sleepQ.len()
}
