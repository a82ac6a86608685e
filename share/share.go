// Package share implements the scoped buffer-sharing discipline: a grant
// handed to the kernel via Allow must be revoked before the backing memory
// is reused, on every exit path. Grants are tracked with a runtime
// "allowed" flag and revoked by Scope regardless of how its body exits,
// including panics.
package share

import "libtock/sys"

// Grant is one kernel-visible memory region. It is implemented by
// RoBuffer and RwBuffer.
type Grant interface {
	Allow() error
	Unallow()
	Allowed() bool
}

// RoBuffer wraps one read-only Allow grant for a fixed driver/slot pair.
// It is single-writer: a buffer must not be shared between tasks while
// allowed.
type RoBuffer struct {
	s         sys.Syscalls
	driverNum uint32
	bufferNum uint32
	allowed   bool
	buf       []byte
}

// NewRo creates an unallowed read-only buffer over buf.
func NewRo(s sys.Syscalls, driverNum, bufferNum uint32, buf []byte) *RoBuffer {
	return &RoBuffer{s: s, driverNum: driverNum, bufferNum: bufferNum, buf: buf}
}

// Allow grants the kernel read access to the buffer. Invoking it while
// already allowed is a no-op success. Displacing a different live grant
// for the same driver/slot fails with ErrAlready: two live grants for one
// slot would leave the displaced owner's bookkeeping stale.
func (b *RoBuffer) Allow() error {
	if b.allowed {
		return nil
	}
	prev, err := b.s.AllowReadOnly(b.driverNum, b.bufferNum, b.buf)
	if err != nil {
		return err
	}
	if prev != nil {
		b.s.UnallowReadOnly(b.driverNum, b.bufferNum)
		return sys.ErrAlready
	}
	b.allowed = true
	return nil
}

// Unallow revokes the grant immediately, whether or not an operation is
// outstanding. Idempotent.
func (b *RoBuffer) Unallow() {
	if !b.allowed {
		return
	}
	b.allowed = false
	b.s.UnallowReadOnly(b.driverNum, b.bufferNum)
}

func (b *RoBuffer) Allowed() bool { return b.allowed }

func (b *RoBuffer) Len() int { return len(b.buf) }

// Bytes revokes any live grant and returns the backing memory. The kernel
// must never observe the buffer while process code mutates it.
func (b *RoBuffer) Bytes() []byte {
	b.Unallow()
	return b.buf
}

// RwBuffer wraps one read-write Allow grant for a fixed driver/slot pair.
type RwBuffer struct {
	s         sys.Syscalls
	driverNum uint32
	bufferNum uint32
	allowed   bool
	buf       []byte
}

// NewRw creates an unallowed read-write buffer over buf.
func NewRw(s sys.Syscalls, driverNum, bufferNum uint32, buf []byte) *RwBuffer {
	return &RwBuffer{s: s, driverNum: driverNum, bufferNum: bufferNum, buf: buf}
}

// Allow grants the kernel read-write access to the buffer. Idempotent;
// see RoBuffer.Allow for the displacement rule.
func (b *RwBuffer) Allow() error {
	if b.allowed {
		return nil
	}
	prev, err := b.s.AllowReadWrite(b.driverNum, b.bufferNum, b.buf)
	if err != nil {
		return err
	}
	if prev != nil {
		b.s.UnallowReadWrite(b.driverNum, b.bufferNum)
		return sys.ErrAlready
	}
	b.allowed = true
	return nil
}

// Unallow revokes the grant immediately. Idempotent.
func (b *RwBuffer) Unallow() {
	if !b.allowed {
		return
	}
	b.allowed = false
	b.s.UnallowReadWrite(b.driverNum, b.bufferNum)
}

func (b *RwBuffer) Allowed() bool { return b.allowed }

func (b *RwBuffer) Len() int { return len(b.buf) }

// Bytes revokes any live grant and returns the backing memory, so the
// caller can read what the kernel wrote without racing further writes.
func (b *RwBuffer) Bytes() []byte {
	b.Unallow()
	return b.buf
}

// Scope runs body and revokes every listed grant on all exit paths:
// normal return, error return, and panic. Grants are revoked in reverse
// order of the argument list.
func Scope(body func() error, grants ...Grant) error {
	defer func() {
		for i := len(grants) - 1; i >= 0; i-- {
			grants[i].Unallow()
		}
	}()
	return body()
}
