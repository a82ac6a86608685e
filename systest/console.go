package systest

import (
	"bytes"
	"io"

	"libtock/sys"
)

// Console capsule ABI, kernel side.
const (
	consoleDriverNum uint32 = 0x1

	consoleCmdExists uint32 = 0
	consoleCmdWrite  uint32 = 1
	consoleCmdRead   uint32 = 2
	consoleCmdAbort  uint32 = 3

	consoleSubWrite uint32 = 1
	consoleSubRead  uint32 = 2

	consoleRoWrite uint32 = 1
	consoleRwRead  uint32 = 1
)

// Console is the fake serial console capsule. Writes land in Out (and
// optionally Tee); reads drain Input.
type Console struct {
	k *Kernel

	// Out accumulates everything written.
	Out bytes.Buffer

	// Tee, when set, additionally receives written bytes (demos point it
	// at os.Stdout).
	Tee io.Writer

	// Input holds bytes pending for read commands.
	Input []byte

	// WriteLimit caps the bytes accepted per write command (0 means
	// unlimited), to exercise short-write loops.
	WriteLimit int
}

// NewConsole installs a fake console capsule into the kernel.
func NewConsole(k *Kernel) *Console {
	c := &Console{k: k}
	k.AddDriver(consoleDriverNum, c)
	return c
}

func (c *Console) Command(cmd, arg0, arg1 uint32) sys.CommandReturn {
	switch cmd {
	case consoleCmdExists:
		return sys.Success()
	case consoleCmdWrite:
		return c.write(arg0)
	case consoleCmdRead:
		return c.read(arg0)
	case consoleCmdAbort:
		return sys.Success()
	default:
		return sys.Failure(sys.ErrNoSupport)
	}
}

func (c *Console) write(n uint32) sys.CommandReturn {
	grant := c.k.RoGrant(consoleDriverNum, consoleRoWrite)
	if grant == nil {
		return sys.Failure(sys.ErrNoMem)
	}
	if int(n) > len(grant) {
		n = uint32(len(grant))
	}
	if c.WriteLimit > 0 && int(n) > c.WriteLimit {
		n = uint32(c.WriteLimit)
	}
	c.Out.Write(grant[:n])
	if c.Tee != nil {
		_, _ = c.Tee.Write(grant[:n])
	}
	c.k.QueueUpcall(consoleDriverNum, consoleSubWrite, n, 0, 0)
	return sys.Success()
}

func (c *Console) read(n uint32) sys.CommandReturn {
	grant := c.k.RwGrant(consoleDriverNum, consoleRwRead)
	if grant == nil {
		return sys.Failure(sys.ErrNoMem)
	}
	if int(n) > len(grant) {
		n = uint32(len(grant))
	}
	if int(n) > len(c.Input) {
		n = uint32(len(c.Input))
	}
	copy(grant[:n], c.Input[:n])
	c.Input = c.Input[n:]
	c.k.QueueUpcall(consoleDriverNum, consoleSubRead, 0, n, 0)
	return sys.Success()
}
