// Package gpio drives the kernel's GPIO capsule: pin configuration,
// reads and writes, and edge-interrupt waits.
package gpio

import (
	"libtock/sched"
	"libtock/sys"
)

// DriverNum is the GPIO capsule's driver number.
const DriverNum uint32 = 0x4

// Command ids.
const (
	cmdCount            uint32 = 0
	cmdEnableOutput     uint32 = 1
	cmdSet              uint32 = 2
	cmdClear            uint32 = 3
	cmdToggle           uint32 = 4
	cmdEnableInput      uint32 = 5
	cmdRead             uint32 = 6
	cmdEnableInterrupt  uint32 = 7
	cmdDisableInterrupt uint32 = 8
	cmdDisable          uint32 = 9
)

// SubscribeCallback is the pin-interrupt subscribe id.
const SubscribeCallback uint32 = 0

// Pull selects the input resistor configuration.
type Pull uint32

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selects which transitions raise an interrupt.
type Edge uint32

const (
	EitherEdge Edge = iota
	RisingEdge
	FallingEdge
)

// Gpio wraps the capsule's commands plus the process-wide interrupt
// subscription.
type Gpio struct {
	s sys.Syscalls

	pending bool
	pin     uint32
	state   uint32
	waker   sched.Waker
}

// New creates a GPIO driver over the given kernel bridge.
func New(s sys.Syscalls) *Gpio {
	return &Gpio{s: s}
}

// Count returns the number of pins the capsule exposes.
func (g *Gpio) Count() (uint32, error) {
	return g.s.Command(DriverNum, cmdCount, 0, 0).U32()
}

// EnableOutput configures the pin as an output.
func (g *Gpio) EnableOutput(pin uint32) error {
	return g.s.Command(DriverNum, cmdEnableOutput, pin, 0).Err()
}

// Set drives the pin high.
func (g *Gpio) Set(pin uint32) error {
	return g.s.Command(DriverNum, cmdSet, pin, 0).Err()
}

// Clear drives the pin low.
func (g *Gpio) Clear(pin uint32) error {
	return g.s.Command(DriverNum, cmdClear, pin, 0).Err()
}

// Toggle inverts the pin.
func (g *Gpio) Toggle(pin uint32) error {
	return g.s.Command(DriverNum, cmdToggle, pin, 0).Err()
}

// EnableInput configures the pin as an input with the given pull.
func (g *Gpio) EnableInput(pin uint32, pull Pull) error {
	return g.s.Command(DriverNum, cmdEnableInput, pin, uint32(pull)).Err()
}

// Read samples the pin. true is high.
func (g *Gpio) Read(pin uint32) (bool, error) {
	v, err := g.s.Command(DriverNum, cmdRead, pin, 0).U32()
	return v != 0, err
}

// Disable deactivates the pin.
func (g *Gpio) Disable(pin uint32) error {
	return g.s.Command(DriverNum, cmdDisable, pin, 0).Err()
}

// WaitEdge returns a task completing on the next interrupt for pin.
// Configure the pin as an input first; the interrupt and the process-wide
// subscription are enabled on first poll and disabled on completion.
// Interrupts on other pins delivered while waiting are dropped: the
// capsule has a single subscription, so only one pin wait may be
// outstanding at a time.
func (g *Gpio) WaitEdge(pin uint32, edge Edge) *EdgeWait {
	return &EdgeWait{g: g, pin: pin, edge: edge}
}

// EdgeWait is a pending pin-interrupt wait.
type EdgeWait struct {
	g       *Gpio
	pin     uint32
	edge    Edge
	armed   bool
	state   bool
	err     error
}

func (w *EdgeWait) Poll(wk sched.Waker) sched.Poll {
	g := w.g
	if !w.armed {
		w.armed = true
		g.pending = false
		if err := g.s.Subscribe(DriverNum, SubscribeCallback, g.interrupt); err != nil {
			return w.finish(false, err)
		}
		if err := g.s.Command(DriverNum, cmdEnableInterrupt, w.pin, uint32(w.edge)).Err(); err != nil {
			g.s.Unsubscribe(DriverNum, SubscribeCallback)
			return w.finish(false, err)
		}
	}
	if g.pending && g.pin == w.pin {
		g.pending = false
		_ = g.s.Command(DriverNum, cmdDisableInterrupt, w.pin, 0).Err()
		g.s.Unsubscribe(DriverNum, SubscribeCallback)
		return w.finish(g.state != 0, nil)
	}
	g.pending = false
	g.waker = wk
	return sched.Pending
}

func (w *EdgeWait) finish(state bool, err error) sched.Poll {
	w.state = state
	w.err = err
	return sched.Ready
}

// State returns the pin level sampled at the interrupt. Only meaningful
// after Poll has returned Ready.
func (w *EdgeWait) State() bool { return w.state }

// Err reports an arming failure. Only meaningful after Poll has returned
// Ready.
func (w *EdgeWait) Err() error { return w.err }

func (g *Gpio) interrupt(pin, state, _ uint32) {
	g.pending = true
	g.pin = pin
	g.state = state
	wk := g.waker
	g.waker = sched.Waker{}
	wk.Wake()
}
