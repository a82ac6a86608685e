// Package i2c drives the kernel's I2C master capsule. Transactions follow
// the single-outstanding pattern: claim the busy slot, share buffers,
// issue the command, and suspend until the transfer-complete upcall.
package i2c

import (
	"libtock/share"
	"libtock/sys"
	"libtock/upcall"
)

// DriverNum is the I2C master capsule's driver number.
const DriverNum uint32 = 0x20003

// Command ids.
const (
	cmdExists           uint32 = 0
	cmdWrite            uint32 = 1
	cmdRead             uint32 = 2
	cmdWriteReadInPlace uint32 = 3
	cmdWriteRead        uint32 = 4
)

// subscribeComplete is the transfer-complete subscribe id, shared by all
// transfer kinds.
const subscribeComplete uint32 = 0

// Allow slots.
const (
	allowRoMaster uint32 = 0
	allowRwMaster uint32 = 1
)

// Master is the asynchronous I2C master driver. Its completion slot is a
// process-wide singleton: create one Master per process.
type Master struct {
	s    sys.Syscalls
	slot upcall.Slot
}

// NewMaster creates the master and registers its completion handler.
func NewMaster(s sys.Syscalls) (*Master, error) {
	m := &Master{s: s}
	if err := s.Subscribe(DriverNum, subscribeComplete, m.slot.Complete); err != nil {
		return nil, err
	}
	return m, nil
}

// Exists checks that the I2C master capsule is present in the kernel.
func (m *Master) Exists() error {
	return m.s.Command(DriverNum, cmdExists, 0, 0).Err()
}

// WriteBuffer wraps buf as the master's read-only allow buffer.
func (m *Master) WriteBuffer(buf []byte) *share.RoBuffer {
	return share.NewRo(m.s, DriverNum, allowRoMaster, buf)
}

// ReadBuffer wraps buf as the master's read-write allow buffer.
func (m *Master) ReadBuffer(buf []byte) *share.RwBuffer {
	return share.NewRw(m.s, DriverNum, allowRwMaster, buf)
}

// Write returns a transaction transmitting the buffer to the device at
// addr.
func (m *Master) Write(addr uint16, wbuf *share.RoBuffer) *upcall.Transaction {
	return m.transaction(wbuf.Unallow, func() error {
		if err := wbuf.Allow(); err != nil {
			return err
		}
		return m.s.Command(DriverNum, cmdWrite, uint32(addr), uint32(wbuf.Len())).Err()
	})
}

// Read returns a transaction filling the buffer from the device at addr.
func (m *Master) Read(addr uint16, rbuf *share.RwBuffer) *upcall.Transaction {
	return m.transaction(rbuf.Unallow, func() error {
		if err := rbuf.Allow(); err != nil {
			return err
		}
		return m.s.Command(DriverNum, cmdRead, uint32(addr), uint32(rbuf.Len())).Err()
	})
}

// WriteRead returns a transaction transmitting wbuf then reading rbuf in
// one transfer with a repeated start.
func (m *Master) WriteRead(addr uint16, wbuf *share.RoBuffer, rbuf *share.RwBuffer) *upcall.Transaction {
	cleanup := func() {
		rbuf.Unallow()
		wbuf.Unallow()
	}
	return m.transaction(cleanup, func() error {
		if err := rbuf.Allow(); err != nil {
			return err
		}
		if err := wbuf.Allow(); err != nil {
			return err
		}
		arg0 := uint32(wbuf.Len())<<8 | uint32(addr)
		return m.s.Command(DriverNum, cmdWriteRead, arg0, uint32(rbuf.Len())).Err()
	})
}

// WriteReadInPlace returns a transaction that writes the first wlen bytes
// of buf and reads rlen bytes back into it.
func (m *Master) WriteReadInPlace(addr uint16, wlen, rlen uint16, buf *share.RwBuffer) *upcall.Transaction {
	if int(wlen) > buf.Len() || int(rlen) > buf.Len() {
		return failedTransaction(sys.ErrNoMem)
	}
	return m.transaction(buf.Unallow, func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		arg0 := uint32(wlen)<<8 | uint32(addr)
		return m.s.Command(DriverNum, cmdWriteReadInPlace, arg0, uint32(rlen)).Err()
	})
}

func (m *Master) transaction(cleanup func(), start func() error) *upcall.Transaction {
	return &upcall.Transaction{
		Slot:  &m.slot,
		Start: start,
		Finish: func(res upcall.Result) error {
			return sys.StatusToError(res.Arg0)
		},
		Cleanup: cleanup,
	}
}

// failedTransaction completes immediately with err, without touching the
// slot or kernel state.
func failedTransaction(err error) *upcall.Transaction {
	var dead upcall.Slot
	return &upcall.Transaction{
		Slot:  &dead,
		Start: func() error { return err },
	}
}
