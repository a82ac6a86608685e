package systest

import (
	"encoding/binary"

	"libtock/sys"
)

// CAN capsule ABI, kernel side.
const (
	canDriverNum uint32 = 0x20007

	canCmdExists           uint32 = 0
	canCmdSetBitRate       uint32 = 1
	canCmdSetMode          uint32 = 2
	canCmdEnable           uint32 = 3
	canCmdDisable          uint32 = 4
	canCmdSend             uint32 = 5
	canCmdStartReceive     uint32 = 7
	canCmdStopReceive      uint32 = 8
	canCmdSetTiming        uint32 = 9
	canCmdReadMessages     uint32 = 10
	canCmdState            uint32 = 11
	canCmdReadSpecialFrame uint32 = 12

	canSubSent     uint32 = 2
	canSubReceived uint32 = 3

	canRoMessage    uint32 = 0
	canRwMessage    uint32 = 0
	canRwMessageDst uint32 = 1
)

// Bus states as reported by the state command.
const (
	canStateUninit  uint32 = 0
	canStateRunning uint32 = 1
	canStateStopped uint32 = 3
)

// Receive-buffer record geometry mirrored from the process side: count
// byte, then 14-byte records of big-endian id field (bit 31 marks an
// extended identifier), length byte, reserved byte, 8-byte payload.
const (
	canRecordSize    = 14
	canMaxRecords    = 3
	canExtendedIDBit = 1 << 31
)

// CANFrame is a frame as the fake capsule stores it: the raw encoded id
// field plus payload.
type CANFrame struct {
	IDBits uint32
	Len    uint8
	Data   [8]byte
}

type canMailbox struct {
	frame   CANFrame
	valid   bool
	counter uint8
	flags   uint8
}

// CAN is the fake CAN capsule: it records outbound frames, holds an
// inbox tests feed with Deliver, and keeps per-identifier mailboxes for
// special frames.
type CAN struct {
	k *Kernel

	// Sent records transmitted frames in order.
	Sent []CANFrame

	// Bitrate, Mode, Timing0 and Timing1 record the last configuration
	// commands.
	Bitrate uint32
	Mode    uint32
	Timing0 uint32
	Timing1 uint32

	state     uint32
	receiving bool
	inbox     []CANFrame
	mailboxes map[uint32]*canMailbox
}

// NewCAN installs a fake CAN capsule into the kernel.
func NewCAN(k *Kernel) *CAN {
	c := &CAN{k: k, mailboxes: make(map[uint32]*canMailbox)}
	k.AddDriver(canDriverNum, c)
	return c
}

func (c *CAN) Command(cmd, arg0, arg1 uint32) sys.CommandReturn {
	switch cmd {
	case canCmdExists:
		return sys.Success()
	case canCmdSetBitRate:
		c.Bitrate = arg0
		return sys.Success()
	case canCmdSetMode:
		c.Mode = arg0
		return sys.Success()
	case canCmdEnable:
		c.state = canStateRunning
		return sys.Success()
	case canCmdDisable:
		c.state = canStateStopped
		return sys.Success()
	case canCmdSend:
		return c.send(arg0, arg1)
	case canCmdStartReceive:
		return c.startReceive()
	case canCmdStopReceive:
		c.receiving = false
		return sys.Success()
	case canCmdSetTiming:
		c.Timing0 = arg0
		c.Timing1 = arg1
		return sys.Success()
	case canCmdReadMessages:
		return c.readMessages()
	case canCmdState:
		return sys.SuccessU32(c.state)
	case canCmdReadSpecialFrame:
		return c.readSpecialFrame(arg0)
	default:
		return sys.Failure(sys.ErrNoSupport)
	}
}

func (c *CAN) send(id, length uint32) sys.CommandReturn {
	grant := c.k.RoGrant(canDriverNum, canRoMessage)
	if grant == nil {
		return sys.Failure(sys.ErrNoMem)
	}
	if length > 8 {
		return sys.Failure(sys.ErrInvalid)
	}
	f := CANFrame{IDBits: id, Len: uint8(length)}
	copy(f.Data[:], grant)
	c.Sent = append(c.Sent, f)
	c.k.QueueUpcall(canDriverNum, canSubSent, 0, 0, 0)
	return sys.Success()
}

func (c *CAN) startReceive() sys.CommandReturn {
	if c.receiving {
		return sys.Failure(sys.ErrAlready)
	}
	if c.k.RwGrant(canDriverNum, canRwMessage) == nil {
		return sys.Failure(sys.ErrNoMem)
	}
	c.receiving = true
	return sys.Success()
}

// Deliver injects one inbound frame, as if it arrived on the bus. With
// reception enabled the unread frames are re-encoded into the shared
// receive buffer and a new-message notification is queued.
func (c *CAN) Deliver(idBits uint32, data []byte) {
	var f CANFrame
	f.IDBits = idBits
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	c.inbox = append(c.inbox, f)
	if !c.receiving {
		return
	}
	if grant := c.k.RwGrant(canDriverNum, canRwMessage); grant != nil {
		encodeRecords(grant, c.inbox)
	}
	c.k.QueueUpcall(canDriverNum, canSubReceived, uint32(len(c.inbox)), 0, 0)
}

// DeliverSpecial stores a frame in the identifier's software mailbox,
// resetting its read counter. Overwriting a frame that was never read
// sets the overwritten flag bit.
func (c *CAN) DeliverSpecial(idBits uint32, data []byte) {
	mb := c.mailboxes[idBits]
	if mb == nil {
		mb = &canMailbox{}
		c.mailboxes[idBits] = mb
	}
	if mb.valid && mb.counter == 0 {
		mb.flags |= 1
	}
	mb.frame = CANFrame{IDBits: idBits, Len: uint8(len(data))}
	copy(mb.frame.Data[:], data)
	mb.valid = true
	mb.counter = 0
	c.k.QueueUpcall(canDriverNum, canSubReceived, idBits, 0, 0)
}

func (c *CAN) readMessages() sys.CommandReturn {
	grant := c.k.RwGrant(canDriverNum, canRwMessageDst)
	if grant == nil {
		return sys.Failure(sys.ErrNoMem)
	}
	n := encodeRecords(grant, c.inbox)
	c.inbox = c.inbox[n:]
	return sys.Success()
}

func (c *CAN) readSpecialFrame(idBits uint32) sys.CommandReturn {
	mb := c.mailboxes[idBits]
	if mb == nil {
		return sys.Failure(sys.ErrNoDevice)
	}
	// status packs [read counter, length, flags, 0] big-endian.
	status := uint32(mb.counter)<<24 | uint32(mb.frame.Len)<<16 | uint32(mb.flags)<<8
	payload := binary.BigEndian.Uint64(mb.frame.Data[:])
	if mb.counter < 0xFF {
		mb.counter++
	}
	return sys.SuccessU32U64(status, payload)
}

// encodeRecords writes the count byte and as many records as fit into
// dst, returning the number encoded.
func encodeRecords(dst []byte, frames []CANFrame) int {
	if len(dst) == 0 {
		return 0
	}
	n := 0
	off := 1
	for _, f := range frames {
		if n == canMaxRecords || off+canRecordSize > len(dst) {
			break
		}
		binary.BigEndian.PutUint32(dst[off:off+4], f.IDBits)
		dst[off+4] = f.Len
		dst[off+5] = 0
		copy(dst[off+6:off+canRecordSize], f.Data[:])
		off += canRecordSize
		n++
	}
	dst[0] = uint8(n)
	return n
}
