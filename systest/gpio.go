package systest

import "libtock/sys"

// GPIO capsule ABI, kernel side.
const (
	gpioDriverNum uint32 = 0x4

	gpioCmdCount            uint32 = 0
	gpioCmdEnableOutput     uint32 = 1
	gpioCmdSet              uint32 = 2
	gpioCmdClear            uint32 = 3
	gpioCmdToggle           uint32 = 4
	gpioCmdEnableInput      uint32 = 5
	gpioCmdRead             uint32 = 6
	gpioCmdEnableInterrupt  uint32 = 7
	gpioCmdDisableInterrupt uint32 = 8
	gpioCmdDisable          uint32 = 9

	gpioSubCallback uint32 = 0
)

// Edge configuration values, matching the interrupt-enable command.
const (
	gpioEitherEdge  uint32 = 0
	gpioRisingEdge  uint32 = 1
	gpioFallingEdge uint32 = 2
)

type gpioPin struct {
	output    bool
	input     bool
	pull      uint32
	level     bool
	interrupt bool
	edge      uint32
}

// Gpio is the fake GPIO capsule: a bank of pins whose levels tests drive
// with SetLevel, raising interrupt upcalls on matching transitions.
type Gpio struct {
	k    *Kernel
	pins []gpioPin
}

// NewGpio installs a fake GPIO capsule with the given pin count.
func NewGpio(k *Kernel, count int) *Gpio {
	g := &Gpio{k: k, pins: make([]gpioPin, count)}
	k.AddDriver(gpioDriverNum, g)
	return g
}

func (g *Gpio) Command(cmd, arg0, arg1 uint32) sys.CommandReturn {
	if cmd == gpioCmdCount {
		return sys.SuccessU32(uint32(len(g.pins)))
	}
	if int(arg0) >= len(g.pins) {
		return sys.Failure(sys.ErrInvalid)
	}
	p := &g.pins[arg0]
	switch cmd {
	case gpioCmdEnableOutput:
		p.output = true
		p.input = false
	case gpioCmdSet:
		if !p.output {
			return sys.Failure(sys.ErrOff)
		}
		p.level = true
	case gpioCmdClear:
		if !p.output {
			return sys.Failure(sys.ErrOff)
		}
		p.level = false
	case gpioCmdToggle:
		if !p.output {
			return sys.Failure(sys.ErrOff)
		}
		p.level = !p.level
	case gpioCmdEnableInput:
		p.input = true
		p.output = false
		p.pull = arg1
	case gpioCmdRead:
		return sys.SuccessU32(boolBit(p.level))
	case gpioCmdEnableInterrupt:
		if !p.input {
			return sys.Failure(sys.ErrOff)
		}
		p.interrupt = true
		p.edge = arg1
	case gpioCmdDisableInterrupt:
		p.interrupt = false
	case gpioCmdDisable:
		*p = gpioPin{}
	default:
		return sys.Failure(sys.ErrNoSupport)
	}
	return sys.Success()
}

// SetLevel drives an input pin externally. A transition matching the
// pin's interrupt configuration queues an interrupt upcall.
func (g *Gpio) SetLevel(pin int, high bool) {
	if pin >= len(g.pins) {
		return
	}
	p := &g.pins[pin]
	if p.level == high {
		return
	}
	p.level = high
	if !p.interrupt {
		return
	}
	switch p.edge {
	case gpioRisingEdge:
		if !high {
			return
		}
	case gpioFallingEdge:
		if high {
			return
		}
	}
	g.k.QueueUpcall(gpioDriverNum, gpioSubCallback, uint32(pin), boolBit(high), 0)
}

// Level reports the pin's current level.
func (g *Gpio) Level(pin int) bool { return g.pins[pin].level }

// InterruptEnabled reports whether the pin's interrupt is armed.
func (g *Gpio) InterruptEnabled(pin int) bool { return g.pins[pin].interrupt }

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
