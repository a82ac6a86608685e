// Package console drives the kernel's serial console capsule: a
// synchronous io.Writer for log-style output and asynchronous write/read
// transactions for tasks running on an executor.
package console

import (
	"io"

	"libtock/share"
	"libtock/sys"
)

// DriverNum is the console capsule's driver number.
const DriverNum uint32 = 0x1

// Command ids.
const (
	cmdExists uint32 = 0
	cmdWrite  uint32 = 1
	cmdRead   uint32 = 2
	cmdAbort  uint32 = 3
)

// Subscribe ids.
const (
	subscribeWrite uint32 = 1
	subscribeRead  uint32 = 2
)

// Allow slots.
const (
	allowRoWrite uint32 = 1
	allowRwRead  uint32 = 1
)

// Console wraps the capsule's synchronous surface.
type Console struct {
	s sys.Syscalls
}

// New creates a console over the given kernel bridge.
func New(s sys.Syscalls) Console {
	return Console{s: s}
}

// Exists checks that the console capsule is present in the kernel.
func (c Console) Exists() error {
	return c.s.Command(DriverNum, cmdExists, 0, 0).Err()
}

// Abort cancels any outstanding console operation.
func (c Console) Abort() error {
	return c.s.Command(DriverNum, cmdAbort, 0, 0).Err()
}

// Writer returns a blocking io.Writer over the console. Each Write shares
// the caller's bytes with the kernel, issues the write command, and
// suspends in YieldWait until the completion upcall lands; the grant and
// subscription are removed on every exit path.
func (c Console) Writer() *Writer {
	return &Writer{s: c.s}
}

// Writer is the synchronous console writer.
type Writer struct {
	s sys.Syscalls
}

var _ io.Writer = (*Writer)(nil)

func (w *Writer) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.writeOnce(p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

func (w *Writer) writeOnce(p []byte) (int, error) {
	var (
		done bool
		n    uint32
	)
	if err := w.s.Subscribe(DriverNum, subscribeWrite, func(bytesWritten, _, _ uint32) {
		n = bytesWritten
		done = true
	}); err != nil {
		return 0, err
	}
	defer w.s.Unsubscribe(DriverNum, subscribeWrite)

	buf := share.NewRo(w.s, DriverNum, allowRoWrite, p)
	err := share.Scope(func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		if err := w.s.Command(DriverNum, cmdWrite, uint32(len(p)), 0).Err(); err != nil {
			return err
		}
		for !done {
			w.s.YieldWait()
		}
		return nil
	}, buf)
	return int(n), err
}
