package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtock/systest"
)

func TestZeroWakerWakesNothing(t *testing.T) {
	var w Waker
	w.Wake()
}

func TestExecutorRunsTasksToCompletion(t *testing.T) {
	k := systest.NewKernel()
	ex := New(k)

	var order []string
	ex.Spawn(TaskFunc(func(w Waker) Poll {
		order = append(order, "a")
		return Ready
	}))
	ex.Spawn(TaskFunc(func(w Waker) Poll {
		order = append(order, "b")
		return Ready
	}))
	ex.Run()

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 0, k.Yields)
}

func TestExecutorWakeResumesPendingTask(t *testing.T) {
	k := systest.NewKernel()
	ex := New(k)

	var parked Waker
	polls := 0
	ex.Spawn(TaskFunc(func(w Waker) Poll {
		polls++
		if polls == 1 {
			parked = w
			return Pending
		}
		return Ready
	}))
	ex.Spawn(TaskFunc(func(w Waker) Poll {
		parked.Wake()
		return Ready
	}))
	ex.Run()

	assert.Equal(t, 2, polls)
}

func TestExecutorSuspendsWhenNothingRunnable(t *testing.T) {
	k := systest.NewKernel()
	ex := New(k)

	var parked Waker
	done := false
	require.NoError(t, k.Subscribe(0x99, 0, func(_, _, _ uint32) {
		done = true
		parked.Wake()
	}))
	k.QueueUpcall(0x99, 0, 0, 0, 0)

	ex.Spawn(TaskFunc(func(w Waker) Poll {
		if done {
			return Ready
		}
		parked = w
		return Pending
	}))
	ex.Run()

	// The first poll parks the task, so the executor must suspend once in
	// YieldWait for the upcall to wake it.
	assert.Equal(t, 1, k.Yields)
	assert.True(t, done)
}

func TestSpawnFailsWhenFull(t *testing.T) {
	k := systest.NewKernel()
	ex := New(k)

	forever := TaskFunc(func(w Waker) Poll { return Pending })
	for i := 0; i < 32; i++ {
		require.True(t, ex.Spawn(forever))
	}
	assert.False(t, ex.Spawn(forever))
}

func TestBlockDrivesTaskThroughYield(t *testing.T) {
	k := systest.NewKernel()

	done := false
	require.NoError(t, k.Subscribe(0x99, 0, func(_, _, _ uint32) {
		done = true
	}))
	k.QueueUpcall(0x99, 0, 0, 0, 0)

	Block(k, TaskFunc(func(w Waker) Poll {
		if done {
			return Ready
		}
		return Pending
	}))

	assert.True(t, done)
	assert.Equal(t, 1, k.Yields)
}
