package ppos_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vbriganti/ppos"
)

// TestSemaphoreMutualExclusion spawns 30 tasks that each increment a shared
// counter 1,000,000 times, guarded by a semaphore initialized to 1 (mutex
// discipline). The final value must equal the exact product with no lost
// updates.
func TestSemaphoreMutualExclusion(t *testing.T) {
	const numTasks = 30
	const incrementsPerTask = 1_000_000

	rt := ppos.New()
	sem := ppos.NewSemaphore()

	counter := 0

	err := rt.Run(func(rt *ppos.Runtime) {
		require.NoError(t, sem.Init(rt, 1))

		children := make([]*ppos.Task, 0, numTasks)
		for i := 0; i < numTasks; i++ {
			child, err := rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
				for j := 0; j < incrementsPerTask; j++ {
					require.NoError(t, sem.Down(rt))
					counter++
					require.NoError(t, sem.Up(rt))
				}
				rt.Exit(0)
			}, nil)
			require.NoError(t, err)
			children = append(children, child)
		}

		for _, c := range children {
			_, err := rt.Wait(c)
			require.NoError(t, err)
		}
	})
	require.NoError(t, err)
	require.Equal(t, numTasks*incrementsPerTask, counter)
}

// TestSemaphore_DownOnDestroyedReturnsErrDestroyed confirms Down on an
// already-destroyed semaphore fails immediately rather than blocking.
func TestSemaphore_DownOnDestroyedReturnsErrDestroyed(t *testing.T) {
	rt := ppos.New()
	sem := ppos.NewSemaphore()

	err := rt.Run(func(rt *ppos.Runtime) {
		require.NoError(t, sem.Init(rt, 0))
		sem.Destroy(rt)

		err := sem.Down(rt)
		require.ErrorIs(t, err, ppos.ErrDestroyed)
	})
	require.NoError(t, err)
}

// TestSemaphore_DestroyWakesBlockedWaiters exercises a task parked in
// Down() observing ErrDestroyed once another task destroys the semaphore
// out from under it, rather than blocking forever.
func TestSemaphore_DestroyWakesBlockedWaiters(t *testing.T) {
	rt := ppos.New()
	sem := ppos.NewSemaphore()

	var waiterErr error
	done := make(chan struct{})

	err := rt.Run(func(rt *ppos.Runtime) {
		require.NoError(t, sem.Init(rt, 0))

		_, err := rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			waiterErr = sem.Down(rt)
			close(done)
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)

		_, err = rt.Spawn(0, func(rt *ppos.Runtime, _ any) {
			rt.Sleep(5)
			sem.Destroy(rt)
			rt.Exit(0)
		}, nil)
		require.NoError(t, err)
	})
	require.NoError(t, err)
	<-done
	require.ErrorIs(t, waiterErr, ppos.ErrDestroyed)
}

// TestSemaphore_InitOnAlreadyInitializedFails exercises the ErrInvalidState
// branch of Init.
func TestSemaphore_InitOnAlreadyInitializedFails(t *testing.T) {
	rt := ppos.New()
	sem := ppos.NewSemaphore()

	err := rt.Run(func(rt *ppos.Runtime) {
		require.NoError(t, sem.Init(rt, 1))
		require.ErrorIs(t, sem.Init(rt, 1), ppos.ErrInvalidState)
	})
	require.NoError(t, err)
}
