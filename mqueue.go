package ppos

// mqueueState is a MessageQueue's lifecycle state.
type mqueueState int32

const (
	mqInitialized mqueueState = iota
	mqFinished
)

// MessageQueue is a bounded message queue: a fixed ring buffer guarded by
// a producer/consumer semaphore pair, exactly the original's structure.
// The original buffer is untyped bytes copied with memcpy at a fixed
// msg_size; Go has no equivalent need for that — the ring holds `any`
// payloads directly, sized by capacity alone. See the preserved
// LIFO-relative-to-send quirk documented on Recv below.
type MessageQueue struct {
	state    mqueueState
	buf      []any
	maxMsgs  int
	index    int // shared write/read index
	numMsgs  int
	producer *Semaphore // credit of empty slots, starts at maxMsgs
	consumer *Semaphore // credit of filled slots, starts at 0
}

// NewMessageQueue creates an INITIALIZED queue with room for maxMsgs
// pending messages, initializing both internal semaphores. Returns
// ErrInvalidArgument for maxMsgs <= 0.
func NewMessageQueue(rt *Runtime, maxMsgs int) (*MessageQueue, error) {
	if maxMsgs <= 0 {
		return nil, ErrInvalidArgument
	}
	q := &MessageQueue{
		state:    mqInitialized,
		buf:      make([]any, maxMsgs),
		maxMsgs:  maxMsgs,
		producer: NewSemaphore(),
		consumer: NewSemaphore(),
	}
	if err := q.producer.Init(rt, maxMsgs); err != nil {
		return nil, err
	}
	if err := q.consumer.Init(rt, 0); err != nil {
		return nil, err
	}
	return q, nil
}

// Send blocks until a slot is free, stores msg, and credits a waiting
// consumer. Returns ErrDestroyed if the queue is destroyed before or
// while blocked.
func (q *MessageQueue) Send(rt *Runtime, msg any) error {
	if err := q.producer.Down(rt); err != nil {
		return ErrDestroyed
	}

	rt.mu.Lock()
	if q.state == mqFinished {
		rt.mu.Unlock()
		return ErrDestroyed
	}
	q.buf[q.index] = msg
	q.index = (q.index + 1) % q.maxMsgs
	q.numMsgs++
	rt.mu.Unlock()

	if err := q.consumer.Up(rt); err != nil {
		return ErrDestroyed
	}
	return nil
}

// Recv blocks until a message is available and returns it. Send advances
// a single shared index and Recv steps it back, with no separate read
// cursor, so Recv returns the most recently sent message still buffered
// rather than the oldest: LIFO-relative-to-send, not FIFO, whenever more
// than one message is buffered. This is preserved deliberately rather
// than "fixed", matching the original implementation.
func (q *MessageQueue) Recv(rt *Runtime) (any, error) {
	if err := q.consumer.Down(rt); err != nil {
		return nil, ErrDestroyed
	}

	rt.mu.Lock()
	if q.state == mqFinished {
		rt.mu.Unlock()
		return nil, ErrDestroyed
	}
	q.index = (q.index - 1 + q.maxMsgs) % q.maxMsgs
	msg := q.buf[q.index]
	q.buf[q.index] = nil
	q.numMsgs--
	rt.mu.Unlock()

	if err := q.producer.Up(rt); err != nil {
		return nil, ErrDestroyed
	}
	return msg, nil
}

// Destroy marks the queue FINISHED and wakes every blocked producer and
// consumer with ErrDestroyed.
func (q *MessageQueue) Destroy(rt *Runtime) {
	rt.mu.Lock()
	q.state = mqFinished
	rt.mu.Unlock()
	q.producer.Destroy(rt)
	q.consumer.Destroy(rt)
}

// Msgs returns the number of messages currently buffered.
func (q *MessageQueue) Msgs(rt *Runtime) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return q.numMsgs
}
