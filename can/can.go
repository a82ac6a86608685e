package can

import (
	"encoding/binary"

	"libtock/share"
	"libtock/sys"
)

// DriverNum is the CAN capsule's driver number.
const DriverNum uint32 = 0x20007

// Command ids.
const (
	cmdExists           uint32 = 0
	cmdSetBitRate       uint32 = 1
	cmdSetMode          uint32 = 2
	cmdEnable           uint32 = 3
	cmdDisable          uint32 = 4
	cmdSend             uint32 = 5
	cmdStartReceive     uint32 = 7
	cmdStopReceive      uint32 = 8
	cmdSetTiming        uint32 = 9
	cmdReadMessages     uint32 = 10
	cmdState            uint32 = 11
	cmdReadSpecialFrame uint32 = 12
)

// Subscribe ids.
const (
	subscribeSent     uint32 = 2
	subscribeReceived uint32 = 3
)

// Allow slots.
const (
	allowRoMessage    uint32 = 0
	allowRwMessage    uint32 = 0
	allowRwMessageDst uint32 = 1
)

// State is the peripheral's bus state.
type State uint32

const (
	StateUninit State = iota
	StateRunning
	StateSleep
	StateStopped
	StateBusOff
)

func (s State) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateRunning:
		return "running"
	case StateSleep:
		return "sleep"
	case StateStopped:
		return "stopped"
	case StateBusOff:
		return "bus off"
	default:
		return "unknown"
	}
}

func stateFrom(v uint32) State {
	if v > uint32(StateBusOff) {
		return StateBusOff
	}
	return State(v)
}

// OperationMode selects how the peripheral participates on the bus.
type OperationMode uint32

const (
	// Loopback transmits on TX and immediately receives on RX.
	Loopback OperationMode = iota
	// Monitoring sends only recessive bits but receives valid frames.
	Monitoring
	// Freeze neither transmits nor receives.
	Freeze
	// Normal transmits and receives.
	Normal
)

// Can wraps the capsule's synchronous commands.
type Can struct {
	s sys.Syscalls
}

// New creates a CAN driver over the given kernel bridge.
func New(s sys.Syscalls) Can {
	return Can{s: s}
}

// Exists checks that the CAN capsule is present in the kernel.
func (c Can) Exists() error {
	return c.s.Command(DriverNum, cmdExists, 0, 0).Err()
}

// SetBitrate configures the bus bit rate.
func (c Can) SetBitrate(baud uint32) error {
	return c.s.Command(DriverNum, cmdSetBitRate, baud, 0).Err()
}

// SetOperationMode configures how the peripheral participates on the bus.
func (c Can) SetOperationMode(mode OperationMode) error {
	return c.s.Command(DriverNum, cmdSetMode, uint32(mode), 0).Err()
}

// Enable powers the peripheral on.
func (c Can) Enable() error {
	return c.s.Command(DriverNum, cmdEnable, 0, 0).Err()
}

// Disable powers the peripheral off.
func (c Can) Disable() error {
	return c.s.Command(DriverNum, cmdDisable, 0, 0).Err()
}

// SetBitTiming configures the bit segment layout. The four packed fields
// ride in arg0, the propagation segment in arg1.
func (c Can) SetBitTiming(segment1, segment2, propagation, syncJumpWidth, prescaler uint8) error {
	arg0 := uint32(segment1)<<24 | uint32(segment2)<<16 |
		uint32(syncJumpWidth)<<8 | uint32(prescaler)
	return c.s.Command(DriverNum, cmdSetTiming, arg0, uint32(propagation)).Err()
}

// State queries the peripheral's bus state.
func (c Can) State() (State, error) {
	v, err := c.s.Command(DriverNum, cmdState, 0, 0).U32()
	if err != nil {
		return StateUninit, err
	}
	return stateFrom(v), nil
}

// Send transmits one frame and blocks until the kernel reports it sent.
// The payload grant and the subscription are removed on every exit path.
func (c Can) Send(f Frame) error {
	sent := false
	if err := c.s.Subscribe(DriverNum, subscribeSent, func(_, _, _ uint32) {
		sent = true
	}); err != nil {
		return err
	}
	defer c.s.Unsubscribe(DriverNum, subscribeSent)

	buf := share.NewRo(c.s, DriverNum, allowRoMessage, f.Data[:])
	return share.Scope(func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		if err := c.s.Command(DriverNum, cmdSend, f.ID.Bits(), uint32(f.Len)).Err(); err != nil {
			return err
		}
		for !sent {
			c.s.YieldWait()
		}
		return nil
	}, buf)
}

// ReadMessages drains the capsule's unread frames. The destination buffer
// is shared only for the duration of the command.
func (c Can) ReadMessages() (Frames, error) {
	raw := make([]byte, ReceiveBufferSize)
	buf := share.NewRw(c.s, DriverNum, allowRwMessageDst, raw)
	err := share.Scope(func() error {
		if err := buf.Allow(); err != nil {
			return err
		}
		return c.s.Command(DriverNum, cmdReadMessages, 0, 0).Err()
	}, buf)
	if err != nil {
		return Frames{}, err
	}
	return DecodeFrames(raw), nil
}

// ReadSpecialFrame returns the last received frame with the given
// identifier from the kernel's software mailboxes, along with how many
// times it has been read and the capsule's flag bits (frame overwritten
// without being read, and similar conditions).
func (c Can) ReadSpecialFrame(id ID) (Frame, uint8, uint8, error) {
	ret := c.s.Command(DriverNum, cmdReadSpecialFrame, id.Bits(), 0)
	status, payload, err := ret.U32U64()
	if err != nil {
		return Frame{}, 0, 0, err
	}

	// status packs [read counter, length, flags, 0] big-endian.
	readCounter := uint8(status >> 24)
	length := uint8(status >> 16)
	flags := uint8(status >> 8)

	f := Frame{ID: id, Len: length}
	binary.BigEndian.PutUint64(f.Data[:], payload)
	return f, readCounter, flags, nil
}

// ReadNewSpecialFrame returns the frame only the first time it is read;
// afterwards the frame is considered stale and ErrAlready is returned.
func (c Can) ReadNewSpecialFrame(id ID) (Frame, error) {
	f, readCounter, _, err := c.ReadSpecialFrame(id)
	if err != nil {
		return Frame{}, err
	}
	if readCounter != 0 {
		return Frame{}, sys.ErrAlready
	}
	return f, nil
}
