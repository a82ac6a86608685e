package systest

import "libtock/sys"

// I2C master capsule ABI, kernel side.
const (
	i2cDriverNum uint32 = 0x20003

	i2cCmdExists           uint32 = 0
	i2cCmdWrite            uint32 = 1
	i2cCmdRead             uint32 = 2
	i2cCmdWriteReadInPlace uint32 = 3
	i2cCmdWriteRead        uint32 = 4

	i2cSubComplete uint32 = 0

	i2cRoMaster uint32 = 0
	i2cRwMaster uint32 = 1
)

// I2COp is one recorded bus transaction.
type I2COp struct {
	Kind  string // "write", "read", "write-read" or "write-read-in-place"
	Addr  uint16
	Wrote []byte
	RLen  int
}

// I2C is the fake I2C master capsule. It records every transaction in
// Ops, answers reads from ReadData, and completes each transfer with an
// upcall at the next suspension point.
type I2C struct {
	k *Kernel

	// Ops records transactions in issue order.
	Ops []I2COp

	// ReadData is the byte stream reads are served from; it repeats from
	// the start when exhausted (zeroes when empty).
	ReadData []byte

	// NextErr, when nonzero, fails the next transaction's completion
	// upcall with that code and then resets.
	NextErr sys.ErrorCode
}

// NewI2C installs a fake I2C master capsule into the kernel.
func NewI2C(k *Kernel) *I2C {
	d := &I2C{k: k}
	k.AddDriver(i2cDriverNum, d)
	return d
}

func (d *I2C) Command(cmd, arg0, arg1 uint32) sys.CommandReturn {
	switch cmd {
	case i2cCmdExists:
		return sys.Success()
	case i2cCmdWrite:
		return d.write(arg0, arg1)
	case i2cCmdRead:
		return d.read(arg0, arg1)
	case i2cCmdWriteRead:
		return d.writeRead(arg0, arg1, false)
	case i2cCmdWriteReadInPlace:
		return d.writeRead(arg0, arg1, true)
	default:
		return sys.Failure(sys.ErrNoSupport)
	}
}

func (d *I2C) write(addr, wlen uint32) sys.CommandReturn {
	grant := d.k.RoGrant(i2cDriverNum, i2cRoMaster)
	if grant == nil || int(wlen) > len(grant) {
		return sys.Failure(sys.ErrNoMem)
	}
	d.record(I2COp{Kind: "write", Addr: uint16(addr), Wrote: clone(grant[:wlen])})
	return sys.Success()
}

func (d *I2C) read(addr, rlen uint32) sys.CommandReturn {
	grant := d.k.RwGrant(i2cDriverNum, i2cRwMaster)
	if grant == nil || int(rlen) > len(grant) {
		return sys.Failure(sys.ErrNoMem)
	}
	d.fill(grant[:rlen])
	d.record(I2COp{Kind: "read", Addr: uint16(addr), RLen: int(rlen)})
	return sys.Success()
}

// writeRead handles both combined transfers: arg0 packs wlen<<8|addr,
// arg1 is the read length. In-place transfers use the single read-write
// grant for both directions.
func (d *I2C) writeRead(arg0, rlen uint32, inPlace bool) sys.CommandReturn {
	addr := uint16(arg0 & 0xFF)
	wlen := (arg0 >> 8) & 0xFF

	var wgrant, rgrant []byte
	if inPlace {
		wgrant = d.k.RwGrant(i2cDriverNum, i2cRwMaster)
		rgrant = wgrant
	} else {
		wgrant = d.k.RoGrant(i2cDriverNum, i2cRoMaster)
		rgrant = d.k.RwGrant(i2cDriverNum, i2cRwMaster)
	}
	if wgrant == nil || rgrant == nil || int(wlen) > len(wgrant) || int(rlen) > len(rgrant) {
		return sys.Failure(sys.ErrNoMem)
	}

	op := I2COp{Kind: "write-read", Addr: addr, Wrote: clone(wgrant[:wlen]), RLen: int(rlen)}
	if inPlace {
		op.Kind = "write-read-in-place"
	}
	d.fill(rgrant[:rlen])
	d.record(op)
	return sys.Success()
}

func (d *I2C) record(op I2COp) {
	d.Ops = append(d.Ops, op)
	status := uint32(d.NextErr)
	d.NextErr = 0
	d.k.QueueUpcall(i2cDriverNum, i2cSubComplete, status, 0, 0)
}

func (d *I2C) fill(dst []byte) {
	if len(d.ReadData) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for i := range dst {
		dst[i] = d.ReadData[i%len(d.ReadData)]
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
