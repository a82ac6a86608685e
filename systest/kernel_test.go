package systest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtock/sys"
)

func TestCommandUnknownDriver(t *testing.T) {
	k := NewKernel()
	assert.Equal(t, sys.ErrNoDevice, k.Command(0x42, 0, 0, 0).Err())
}

func TestAllowReturnsDisplacedGrant(t *testing.T) {
	k := NewKernel()

	first := []byte{1}
	prev, err := k.AllowReadOnly(1, 0, first)
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = k.AllowReadOnly(1, 0, []byte{2})
	require.NoError(t, err)
	assert.Equal(t, first, prev)

	k.UnallowReadOnly(1, 0)
	assert.Nil(t, k.RoGrant(1, 0))
}

func TestSubscribeNilUpcall(t *testing.T) {
	k := NewKernel()
	assert.Equal(t, sys.ErrInvalid, k.Subscribe(1, 0, nil))
}

func TestYieldWaitDeliversOneUpcall(t *testing.T) {
	k := NewKernel()
	var got [][3]uint32
	require.NoError(t, k.Subscribe(1, 0, func(a, b, c uint32) {
		got = append(got, [3]uint32{a, b, c})
	}))

	k.QueueUpcall(1, 0, 10, 11, 12)
	k.QueueUpcall(1, 0, 20, 21, 22)

	k.YieldWait()
	require.Len(t, got, 1)
	assert.Equal(t, [3]uint32{10, 11, 12}, got[0])
	assert.Equal(t, 1, k.PendingUpcalls())

	k.YieldWait()
	assert.Len(t, got, 2)
	assert.Equal(t, 0, k.PendingUpcalls())
}

func TestYieldWaitDropsUnsubscribedUpcalls(t *testing.T) {
	k := NewKernel()
	delivered := false
	require.NoError(t, k.Subscribe(1, 1, func(_, _, _ uint32) {
		delivered = true
	}))

	// The first queued upcall has no subscriber and must be skipped, not
	// delivered later.
	k.QueueUpcall(1, 0, 0, 0, 0)
	k.QueueUpcall(1, 1, 0, 0, 0)

	k.YieldWait()
	assert.True(t, delivered)
	assert.Equal(t, 0, k.PendingUpcalls())
}

func TestYieldWaitPanicsWhenBlockedForever(t *testing.T) {
	k := NewKernel()
	assert.Panics(t, func() { k.YieldWait() })
}

func TestIdleDriverProducesEvents(t *testing.T) {
	k := NewKernel()
	fake := NewAlarm(k)
	fake.AutoFire = true

	fired := false
	require.NoError(t, k.Subscribe(alarmDriverNum, alarmSubCallback, func(_, _, _ uint32) {
		fired = true
	}))
	k.Command(alarmDriverNum, alarmCmdSetRelative, 100, 0)

	k.YieldWait()
	assert.True(t, fired)
	assert.GreaterOrEqual(t, fake.Ticks(), uint32(100))
}

func TestAlarmAdvanceAcrossWrap(t *testing.T) {
	k := NewKernel()
	fake := NewAlarm(k)
	fake.SetTicks(0xFFFFFFF0)

	k.Command(alarmDriverNum, alarmCmdSetAbsolute, 0xFFFFFFF0, 0x20)
	fake.Advance(0x100)

	// The alarm fired once while crossing its target and time kept going;
	// the fire itself consumes one extra tick of latency.
	assert.Equal(t, 1, k.PendingUpcalls())
	assert.False(t, fake.Armed())
	assert.Equal(t, uint32(0xF1), fake.Ticks())
}
