package console

import (
	"libtock/share"
	"libtock/sys"
	"libtock/upcall"
)

// Async is the asynchronous console driver. Its write and read slots are
// process-wide singletons: create one Async per process, matching the
// kernel's one-outstanding-operation-per-subscribe-id contract.
type Async struct {
	s     sys.Syscalls
	wslot upcall.Slot
	rslot upcall.Slot
}

// NewAsync creates the async console and registers its completion
// handlers.
func NewAsync(s sys.Syscalls) (*Async, error) {
	c := &Async{s: s}
	if err := s.Subscribe(DriverNum, subscribeWrite, c.wslot.Complete); err != nil {
		return nil, err
	}
	if err := s.Subscribe(DriverNum, subscribeRead, c.rslot.Complete); err != nil {
		s.Unsubscribe(DriverNum, subscribeWrite)
		return nil, err
	}
	return c, nil
}

// WriteBuffer wraps buf as the console's read-only allow buffer.
func (c *Async) WriteBuffer(buf []byte) *share.RoBuffer {
	return share.NewRo(c.s, DriverNum, allowRoWrite, buf)
}

// ReadBuffer wraps buf as the console's read-write allow buffer.
func (c *Async) ReadBuffer(buf []byte) *share.RwBuffer {
	return share.NewRw(c.s, DriverNum, allowRwRead, buf)
}

// Write is a completed or in-flight console write transaction.
type Write struct {
	upcall.Transaction
	n uint32
}

// Written returns the byte count reported by the kernel. Only meaningful
// after the transaction is Ready.
func (w *Write) Written() int { return int(w.n) }

// Write returns a transaction that shares buf with the kernel and writes
// its contents. A busy driver parks the task until the slot is released,
// so byte-stream writers serialize naturally.
func (c *Async) Write(buf *share.RoBuffer) *Write {
	w := c.newWrite(buf)
	w.RetryBusy = true
	return w
}

// TryWrite is Write without the retry policy: a busy driver fails the
// transaction immediately with ErrBusy.
func (c *Async) TryWrite(buf *share.RoBuffer) *Write {
	return c.newWrite(buf)
}

func (c *Async) newWrite(buf *share.RoBuffer) *Write {
	w := &Write{}
	w.Slot = &c.wslot
	w.Start = func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		return c.s.Command(DriverNum, cmdWrite, uint32(buf.Len()), 0).Err()
	}
	w.Finish = func(res upcall.Result) error {
		w.n = res.Arg0
		return nil
	}
	w.Cleanup = buf.Unallow
	return w
}

// Read is a completed or in-flight console read transaction.
type Read struct {
	upcall.Transaction
	n uint32
}

// Received returns the byte count reported by the kernel. Only meaningful
// after the transaction is Ready.
func (r *Read) Received() int { return int(r.n) }

// Read returns a transaction that fills buf with incoming console bytes.
// A busy driver fails immediately with ErrBusy.
func (c *Async) Read(buf *share.RwBuffer) *Read {
	r := &Read{}
	r.Slot = &c.rslot
	r.Start = func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		return c.s.Command(DriverNum, cmdRead, uint32(buf.Len()), 0).Err()
	}
	r.Finish = func(res upcall.Result) error {
		r.n = res.Arg1
		return sys.StatusToError(res.Arg0)
	}
	r.Cleanup = buf.Unallow
	return r
}
