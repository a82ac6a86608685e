package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtock/sched"
	"libtock/sys"
	"libtock/systest"
)

func newGpio(t *testing.T) (*systest.Kernel, *systest.Gpio, *Gpio) {
	t.Helper()
	k := systest.NewKernel()
	fake := systest.NewGpio(k, 4)
	return k, fake, New(k)
}

func TestCount(t *testing.T) {
	_, _, g := newGpio(t)
	n, err := g.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), n)
}

func TestOutputPin(t *testing.T) {
	_, fake, g := newGpio(t)

	require.NoError(t, g.EnableOutput(2))
	require.NoError(t, g.Set(2))
	assert.True(t, fake.Level(2))

	require.NoError(t, g.Clear(2))
	assert.False(t, fake.Level(2))

	require.NoError(t, g.Toggle(2))
	assert.True(t, fake.Level(2))
}

func TestWriteToUnconfiguredPinFails(t *testing.T) {
	_, _, g := newGpio(t)
	assert.Equal(t, sys.ErrOff, g.Set(0))
}

func TestPinOutOfRange(t *testing.T) {
	_, _, g := newGpio(t)
	assert.Equal(t, sys.ErrInvalid, g.EnableOutput(9))
}

func TestInputPinRead(t *testing.T) {
	_, fake, g := newGpio(t)

	require.NoError(t, g.EnableInput(1, PullDown))
	v, err := g.Read(1)
	require.NoError(t, err)
	assert.False(t, v)

	fake.SetLevel(1, true)
	v, err = g.Read(1)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestWaitEdgeCompletesOnInterrupt(t *testing.T) {
	k, fake, g := newGpio(t)
	require.NoError(t, g.EnableInput(0, PullNone))

	wait := g.WaitEdge(0, RisingEdge)
	require.Equal(t, sched.Pending, wait.Poll(sched.Waker{}))
	assert.True(t, fake.InterruptEnabled(0))

	fake.SetLevel(0, true)
	k.YieldWait()
	require.Equal(t, sched.Ready, wait.Poll(sched.Waker{}))
	require.NoError(t, wait.Err())
	assert.True(t, wait.State())

	// Completion tears down the interrupt and the subscription.
	assert.False(t, fake.InterruptEnabled(0))
	assert.False(t, k.Subscribed(DriverNum, SubscribeCallback))
}

func TestWaitEdgeFiltersEdge(t *testing.T) {
	k, fake, g := newGpio(t)
	require.NoError(t, g.EnableInput(0, PullUp))

	wait := g.WaitEdge(0, FallingEdge)
	require.Equal(t, sched.Pending, wait.Poll(sched.Waker{}))

	// A rising transition on a falling-edge wait produces no upcall.
	fake.SetLevel(0, true)
	assert.Equal(t, 0, k.PendingUpcalls())

	fake.SetLevel(0, false)
	k.YieldWait()
	require.Equal(t, sched.Ready, wait.Poll(sched.Waker{}))
	assert.False(t, wait.State())
}

func TestWaitEdgeOnExecutor(t *testing.T) {
	k, fake, g := newGpio(t)
	require.NoError(t, g.EnableInput(3, PullNone))

	ex := sched.New(k)
	wait := g.WaitEdge(3, EitherEdge)
	fired := false
	ex.Spawn(sched.TaskFunc(func(w sched.Waker) sched.Poll {
		if wait.Poll(w) == sched.Ready {
			fired = true
			return sched.Ready
		}
		return sched.Pending
	}))
	ex.Spawn(sched.TaskFunc(func(w sched.Waker) sched.Poll {
		fake.SetLevel(3, true)
		return sched.Ready
	}))
	ex.Run()

	assert.True(t, fired)
	require.NoError(t, wait.Err())
	assert.True(t, wait.State())
}

func TestDisableResetsPin(t *testing.T) {
	_, fake, g := newGpio(t)
	require.NoError(t, g.EnableOutput(1))
	require.NoError(t, g.Set(1))
	require.NoError(t, g.Disable(1))
	assert.False(t, fake.Level(1))
	assert.Equal(t, sys.ErrOff, g.Set(1))
}
