package i2c

import (
	"tinygo.org/x/drivers"

	"libtock/sys"
)

// Bus adapts the asynchronous Master to the blocking drivers.I2C
// interface, so device drivers from the tinygo.org/x/drivers catalogue
// run unmodified over the I2C capsule. Each call drives its transaction
// to completion with YieldWait; the caller's slices are shared with the
// kernel directly and revoked before the call returns.
type Bus struct {
	m *Master
	s sys.Syscalls
}

var _ drivers.I2C = (*Bus)(nil)

// Bus returns the blocking adapter for the master.
func (m *Master) Bus() *Bus {
	return &Bus{m: m, s: m.s}
}

// Tx performs a write, a read, or a write-then-read transfer, depending
// on which of w and r are non-empty.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) > 0 && len(r) > 0:
		return b.m.WriteRead(addr, b.m.WriteBuffer(w), b.m.ReadBuffer(r)).Wait(b.s)
	case len(w) > 0:
		return b.m.Write(addr, b.m.WriteBuffer(w)).Wait(b.s)
	case len(r) > 0:
		return b.m.Read(addr, b.m.ReadBuffer(r)).Wait(b.s)
	default:
		return nil
	}
}

// ReadRegister reads buf from an 8-bit device register.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	regbuf := [1]byte{reg}
	return b.Tx(uint16(addr), regbuf[:], buf)
}

// WriteRegister writes buf to an 8-bit device register.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 1+len(buf))
	w[0] = reg
	copy(w[1:], buf)
	return b.Tx(uint16(addr), w, nil)
}
