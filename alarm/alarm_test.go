package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtock/systest"
)

func TestMillisecondsToTicksRoundsUp(t *testing.T) {
	assert.Equal(t, Ticks(2000), Milliseconds(2).ToTicks(1_000_000))
	assert.Equal(t, Ticks(33), Milliseconds(1).ToTicks(32768))
	assert.Equal(t, Ticks(0), Milliseconds(0).ToTicks(1_000_000))
}

func TestMillisecondsToTicksSaturates(t *testing.T) {
	// An overflowing product must clamp to the longest representable
	// duration, never wrap into a short one.
	got := Milliseconds(0xFFFFFFFF).ToTicks(1_000_000)
	assert.Equal(t, Ticks(4294968), got)
}

func TestTicksToTicksIsIdentity(t *testing.T) {
	assert.Equal(t, Ticks(123), Ticks(123).ToTicks(32768))
}

func TestAlarmQueriesCapsule(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewAlarm(k)
	fake.SetTicks(2_000_000)
	a := New(k)

	require.NoError(t, a.Exists())

	freq, err := a.Frequency()
	require.NoError(t, err)
	assert.Equal(t, Hz(1_000_000), freq)

	ticks, err := a.Ticks()
	require.NoError(t, err)
	assert.Equal(t, Ticks(2_000_000), ticks)

	ms, err := a.Milliseconds()
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), ms)
}

func TestSetRelativeArmsCapsule(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewAlarm(k)
	fake.SetTicks(100)
	a := New(k)

	got, err := a.SetRelative(Ticks(400))
	require.NoError(t, err)
	assert.True(t, fake.Armed())
	assert.Equal(t, uint32(500), fake.Target())
	assert.Equal(t, Ticks(500), got)

	require.NoError(t, a.Cancel())
	assert.False(t, fake.Armed())
	assert.Equal(t, 1, fake.Stops)
}

func TestSleepForBlocksUntilExpiry(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewAlarm(k)
	fake.AutoFire = true
	a := New(k)

	require.NoError(t, a.SleepFor(Ticks(500)))
	assert.GreaterOrEqual(t, fake.Ticks(), uint32(500))
	assert.GreaterOrEqual(t, k.Yields, 1)

	// The expiration subscription must not outlive the sleep.
	assert.False(t, k.Subscribed(DriverNum, SubscribeCallback))
}

func TestSleepForMilliseconds(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewAlarm(k)
	fake.AutoFire = true
	a := New(k)

	require.NoError(t, a.SleepFor(Milliseconds(3)))
	assert.GreaterOrEqual(t, fake.Ticks(), uint32(3000))
}
