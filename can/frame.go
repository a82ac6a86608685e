// Package can drives the kernel's CAN capsule: bus configuration, frame
// transmission, receive notifications, and decoding of the fixed-size
// receive-buffer records.
package can

import "encoding/binary"

// ID is a CAN frame identifier: an 11-bit standard identifier or a
// 29-bit extended identifier.
type ID struct {
	Num      uint32
	Extended bool
}

// StandardID returns an 11-bit standard identifier.
func StandardID(n uint16) ID {
	return ID{Num: uint32(n) & 0x7FF}
}

// ExtendedID returns a 29-bit extended identifier.
func ExtendedID(n uint32) ID {
	return ID{Num: n & 0x1FFFFFFF, Extended: true}
}

// extendedBit discriminates the two identifier variants in the encoded
// 32-bit field. Bits 29-30 are reserved and always zero.
const extendedBit uint32 = 1 << 31

// Bits encodes the identifier into the record's 32-bit field.
func (id ID) Bits() uint32 {
	if id.Extended {
		return extendedBit | id.Num&0x1FFFFFFF
	}
	return id.Num & 0x7FF
}

// IDFromBits decodes a record identifier field.
func IDFromBits(v uint32) ID {
	if v&extendedBit != 0 {
		return ID{Num: v & 0x1FFFFFFF, Extended: true}
	}
	return ID{Num: v & 0x7FF}
}

// PayloadSize is the fixed payload window of one record.
const PayloadSize = 8

// Receive-buffer record geometry: a leading unread-count byte, then up to
// MaxRecords fixed-size records. Each record is a big-endian identifier
// field, a length byte, one reserved byte, and the payload window.
const (
	RecordSize        = 14
	MaxRecords        = 3
	recordHeaderSize  = 6
	ReceiveBufferSize = 1 + MaxRecords*RecordSize
)

// Frame is one CAN frame. Data beyond Len is don't-care padding.
type Frame struct {
	ID   ID
	Len  uint8
	Data [PayloadSize]byte
}

// AppendRecord appends the frame's 14-byte record encoding to dst.
func AppendRecord(dst []byte, f Frame) []byte {
	var rec [RecordSize]byte
	binary.BigEndian.PutUint32(rec[0:4], f.ID.Bits())
	rec[4] = f.Len
	copy(rec[recordHeaderSize:], f.Data[:])
	return append(dst, rec[:]...)
}

// Frames decodes a receive buffer lazily: a finite, non-restartable
// sequence of records.
type Frames struct {
	buf       []byte
	index     int
	remaining uint8
}

// DecodeFrames wraps a receive buffer (count byte plus records). The
// buffer is not copied; it must not be shared with the kernel while
// iterating.
func DecodeFrames(buf []byte) Frames {
	if len(buf) == 0 {
		return Frames{}
	}
	return Frames{buf: buf[1:], remaining: buf[0]}
}

// Remaining reports how many declared records have not been decoded yet.
func (f *Frames) Remaining() int { return int(f.remaining) }

// Next decodes the next record. Iteration stops when the declared count
// is exhausted or the remaining buffer is too short to hold a full
// record; a truncated trailing record is dropped, not an error.
func (f *Frames) Next() (Frame, bool) {
	if f.remaining == 0 || f.index+RecordSize > len(f.buf) {
		return Frame{}, false
	}
	rec := f.buf[f.index : f.index+RecordSize]
	f.index += RecordSize
	f.remaining--

	var frame Frame
	frame.ID = IDFromBits(binary.BigEndian.Uint32(rec[0:4]))
	frame.Len = rec[4]
	copy(frame.Data[:], rec[recordHeaderSize:])
	return frame, true
}
