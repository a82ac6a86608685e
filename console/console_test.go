package console

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtock/systest"
)

func TestWriterWritesAll(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewConsole(k)
	w := New(k).Writer()

	n, err := w.Write([]byte("hello, capsule\n"))
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	assert.Equal(t, "hello, capsule\n", fake.Out.String())

	// No grant or subscription may outlive the call.
	assert.Nil(t, k.RoGrant(DriverNum, allowRoWrite))
	assert.False(t, k.Subscribed(DriverNum, subscribeWrite))
}

func TestWriterLoopsOnShortWrites(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewConsole(k)
	fake.WriteLimit = 4
	w := New(k).Writer()

	n, err := w.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "0123456789", fake.Out.String())
	assert.Equal(t, 3, k.Yields)
}

func TestWriterWithFmt(t *testing.T) {
	k := systest.NewKernel()
	fake := systest.NewConsole(k)
	w := New(k).Writer()

	fmt.Fprintf(w, "pin %d -> %t\n", 4, true)
	assert.Equal(t, "pin 4 -> true\n", fake.Out.String())
}

func TestWriterFailsWithoutCapsule(t *testing.T) {
	k := systest.NewKernel()
	w := New(k).Writer()

	_, err := w.Write([]byte("x"))
	require.Error(t, err)
	assert.Nil(t, k.RoGrant(DriverNum, allowRoWrite))
	assert.False(t, k.Subscribed(DriverNum, subscribeWrite))
}

func TestExists(t *testing.T) {
	k := systest.NewKernel()
	systest.NewConsole(k)
	require.NoError(t, New(k).Exists())
	require.NoError(t, New(k).Abort())
}
