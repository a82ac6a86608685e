package can

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDBitsRoundTrip(t *testing.T) {
	std := StandardID(0x123)
	assert.Equal(t, uint32(0x123), std.Bits())
	assert.Equal(t, std, IDFromBits(std.Bits()))

	ext := ExtendedID(0x1ABCDEF0)
	assert.Equal(t, extendedBit|0x1ABCDEF0, ext.Bits())
	assert.Equal(t, ext, IDFromBits(ext.Bits()))
}

func TestIDConstructorsMask(t *testing.T) {
	assert.Equal(t, uint32(0x7FF), StandardID(0xFFFF).Num)
	assert.Equal(t, uint32(0x1FFFFFFF), ExtendedID(0xFFFFFFFF).Num)
}

func TestIDFromBitsIgnoresReservedBits(t *testing.T) {
	// Bits 29-30 are reserved; a standard id decode keeps only the low 11.
	got := IDFromBits(0x60000123)
	assert.Equal(t, StandardID(0x123), got)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f1 := Frame{ID: StandardID(0x7A), Len: 3, Data: [8]byte{1, 2, 3}}
	f2 := Frame{ID: ExtendedID(0x1234567), Len: 8, Data: [8]byte{9, 8, 7, 6, 5, 4, 3, 2}}

	buf := []byte{2}
	buf = AppendRecord(buf, f1)
	buf = AppendRecord(buf, f2)
	require.Len(t, buf, 1+2*RecordSize)

	frames := DecodeFrames(buf)
	assert.Equal(t, 2, frames.Remaining())

	got, ok := frames.Next()
	require.True(t, ok)
	assert.Equal(t, f1, got)

	got, ok = frames.Next()
	require.True(t, ok)
	assert.Equal(t, f2, got)

	_, ok = frames.Next()
	assert.False(t, ok)
}

func TestDecodeStopsAtDeclaredCount(t *testing.T) {
	buf := []byte{1}
	buf = AppendRecord(buf, Frame{ID: StandardID(1), Len: 1, Data: [8]byte{0xAA}})
	buf = AppendRecord(buf, Frame{ID: StandardID(2), Len: 1, Data: [8]byte{0xBB}})

	frames := DecodeFrames(buf)
	_, ok := frames.Next()
	require.True(t, ok)
	_, ok = frames.Next()
	assert.False(t, ok)
}

func TestDecodeDropsTruncatedTrailingRecord(t *testing.T) {
	buf := []byte{2}
	buf = AppendRecord(buf, Frame{ID: StandardID(5), Len: 2, Data: [8]byte{1, 2}})
	buf = append(buf, 0x00, 0x00, 0x01) // partial second record

	frames := DecodeFrames(buf)
	got, ok := frames.Next()
	require.True(t, ok)
	assert.Equal(t, StandardID(5), got.ID)

	_, ok = frames.Next()
	assert.False(t, ok)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	frames := DecodeFrames(nil)
	assert.Equal(t, 0, frames.Remaining())
	_, ok := frames.Next()
	assert.False(t, ok)

	frames = DecodeFrames([]byte{0})
	_, ok = frames.Next()
	assert.False(t, ok)
}
