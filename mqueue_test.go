package ppos_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vbriganti/ppos"
)

// TestMessageQueue_RoundTripSingleProducerConsumer confirms a bounded queue
// with room for one in-flight message round-trips a value from Send to
// Recv correctly when there's no overlap to trigger the documented
// LIFO-relative-to-send caveat.
func TestMessageQueue_RoundTripSingleProducerConsumer(t *testing.T) {
	rt := ppos.New()

	var got any
	err := rt.Run(func(rt *ppos.Runtime) {
		q, err := ppos.NewMessageQueue(rt, 1)
		require.NoError(t, err)

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			require.NoError(t, q.Send(rt, 42))
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			msg, err := q.Recv(rt)
			require.NoError(t, err)
			got = msg
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

// TestMessageQueue_NewWithNonPositiveCapacityFails covers the documented
// ErrInvalidArgument branch of NewMessageQueue.
func TestMessageQueue_NewWithNonPositiveCapacityFails(t *testing.T) {
	rt := ppos.New()
	_, err := ppos.NewMessageQueue(rt, 0)
	require.ErrorIs(t, err, ppos.ErrInvalidArgument)
}

// TestBoundedMessageQueueUnderPressure runs three producers and one
// consumer sharing a queue of capacity 5. Producers block once the queue
// is full, and the consumer drains every message they send without loss.
func TestBoundedMessageQueueUnderPressure(t *testing.T) {
	const capacity = 5
	const numProducers = 3
	const messagesPerProducer = 50
	const totalMessages = numProducers * messagesPerProducer

	rt := ppos.New()

	var mu sync.Mutex
	var sum int
	received := 0
	allReceived := make(chan struct{})

	err := rt.Run(func(rt *ppos.Runtime) {
		q, err := ppos.NewMessageQueue(rt, capacity)
		require.NoError(t, err)

		for p := 0; p < numProducers; p++ {
			_, err := rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
				for i := 0; i < messagesPerProducer; i++ {
					if sendErr := q.Send(rt, 1); sendErr != nil {
						rt.Exit(0)
						return
					}
				}
				rt.Exit(0)
			}, nil)
			require.NoError(t, err)
		}

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			for {
				msg, recvErr := q.Recv(rt)
				if recvErr != nil {
					rt.Exit(0)
					return
				}
				mu.Lock()
				sum += msg.(int)
				received++
				done := received == totalMessages
				mu.Unlock()
				if done {
					close(allReceived)
					rt.Exit(0)
				}
			}
		}, nil)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	select {
	case <-allReceived:
	default:
		t.Fatal("consumer never drained the expected number of messages")
	}
	require.Equal(t, totalMessages, sum)
}

// TestMessageQueue_DestroyWakesBlockedProducer exercises a producer parked
// in Send (queue full) observing ErrDestroyed when the queue is torn down.
func TestMessageQueue_DestroyWakesBlockedProducer(t *testing.T) {
	rt := ppos.New()

	var sendErr error
	done := make(chan struct{})

	err := rt.Run(func(rt *ppos.Runtime) {
		q, err := ppos.NewMessageQueue(rt, 1)
		require.NoError(t, err)
		require.NoError(t, q.Send(rt, "fills the one slot"))

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			sendErr = q.Send(rt, "blocks: queue is full")
			close(done)
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			rt.Sleep(5)
			q.Destroy(rt)
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	<-done
	require.ErrorIs(t, sendErr, ppos.ErrDestroyed)
}
