package ppos

import "testing"

func TestTaskQueue_FIFOOrderingForEqualPriority(t *testing.T) {
	q := newTaskQueue("test", readyCompare)
	a := &Task{tid: 1, currentPrio: 0}
	b := &Task{tid: 2, currentPrio: 0}
	c := &Task{tid: 3, currentPrio: 0}

	q.insert(a)
	q.insert(b)
	q.insert(c)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.popFront()
		if !ok || got.tid != want {
			t.Fatalf("popFront: want tid %d, got %+v (ok=%v)", want, got, ok)
		}
	}
}

func TestTaskQueue_InsertOrdersByPriority(t *testing.T) {
	q := newTaskQueue("test", readyCompare)
	lo := &Task{tid: 1, currentPrio: 5}
	hi := &Task{tid: 2, currentPrio: -5}
	mid := &Task{tid: 3, currentPrio: 0}

	q.insert(lo)
	q.insert(hi)
	q.insert(mid)

	if q.front().tid != 2 {
		t.Fatalf("expected most urgent (lowest currentPrio) task at front, got tid %d", q.front().tid)
	}
}

func TestTaskQueue_InsertAlreadyLinkedPanics(t *testing.T) {
	q1 := newTaskQueue("q1", nil)
	q2 := newTaskQueue("q2", nil)
	task := &Task{tid: 1}
	q1.insert(task)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic inserting an already-linked task into another queue")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T: %v", r, r)
		}
	}()
	q2.insert(task)
}

func TestTaskQueue_RemoveNotLinkedPanics(t *testing.T) {
	q := newTaskQueue("q", nil)
	task := &Task{tid: 1}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic removing a task not linked into this queue")
		}
	}()
	q.remove(task)
}

func TestTaskQueue_SleepCompareOrdersByDeadline(t *testing.T) {
	q := newTaskQueue("sleep", sleepCompare)
	late := &Task{tid: 1, sleepDeadline: 500}
	early := &Task{tid: 2, sleepDeadline: 10}
	q.insert(late)
	q.insert(early)

	got, ok := q.popFront()
	if !ok || got.tid != 2 {
		t.Fatalf("expected earliest deadline first, got %+v", got)
	}
}

func TestTaskQueue_EmptyAndLen(t *testing.T) {
	q := newTaskQueue("q", nil)
	if !q.empty() || q.len() != 0 {
		t.Fatal("new queue should be empty with len 0")
	}
	t1 := &Task{tid: 1}
	q.append(t1)
	if q.empty() || q.len() != 1 {
		t.Fatal("queue with one element should report len 1")
	}
	q.remove(t1)
	if !q.empty() {
		t.Fatal("queue should be empty after removing its only element")
	}
}
