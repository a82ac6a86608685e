// Package alarm drives the kernel's alarm capsule: synchronous wrappers
// over its commands, unit conversion helpers, and a Time Driver that
// extends the wrapping 32-bit hardware tick counter into a 64-bit
// monotonic logical clock with any number of pending software deadlines
// multiplexed onto the single physical alarm register.
package alarm

import "libtock/sys"

// DriverNum is the alarm capsule's driver number.
const DriverNum uint32 = 0x0

// Command ids.
const (
	cmdExists      uint32 = 0
	cmdFrequency   uint32 = 1
	cmdTime        uint32 = 2
	cmdStop        uint32 = 3
	cmdSetRelative uint32 = 5
	cmdSetAbsolute uint32 = 6
)

// SubscribeCallback is the alarm expiration subscribe id.
const SubscribeCallback uint32 = 0

// Hz is a tick frequency.
type Hz uint32

// Ticks is a duration or instant in raw hardware ticks.
type Ticks uint32

// Milliseconds is a duration in milliseconds.
type Milliseconds uint32

// Convertible converts a time unit into ticks, rounding up.
type Convertible interface {
	ToTicks(freq Hz) Ticks
}

func (t Ticks) ToTicks(Hz) Ticks { return t }

// ToTicks converts milliseconds to ticks. The multiplication saturates:
// at 1MHz this caps the effective duration at about an hour, which is
// preferable to wrapping into a shorter, incorrect sleep.
func (ms Milliseconds) ToTicks(freq Hz) Ticks {
	product := satMul32(uint32(ms), uint32(freq))
	return Ticks(divCeil(product, 1000))
}

func satMul32(a, b uint32) uint32 {
	p := uint64(a) * uint64(b)
	if p > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(p)
}

func divCeil(a, b uint32) uint32 {
	d := a / b
	if a%b != 0 {
		d++
	}
	return d
}

// Alarm wraps the capsule's synchronous commands.
type Alarm struct {
	s sys.Syscalls
}

// New creates an alarm over the given kernel bridge.
func New(s sys.Syscalls) Alarm {
	return Alarm{s: s}
}

// Exists checks that the alarm capsule is present in the kernel.
func (a Alarm) Exists() error {
	return a.s.Command(DriverNum, cmdExists, 0, 0).Err()
}

// Frequency returns the hardware tick frequency.
func (a Alarm) Frequency() (Hz, error) {
	v, err := a.s.Command(DriverNum, cmdFrequency, 0, 0).U32()
	return Hz(v), err
}

// Ticks reads the raw hardware tick register.
func (a Alarm) Ticks() (Ticks, error) {
	v, err := a.s.Command(DriverNum, cmdTime, 0, 0).U32()
	return Ticks(v), err
}

// Milliseconds returns the tick register scaled to milliseconds.
func (a Alarm) Milliseconds() (uint64, error) {
	ticks, err := a.Ticks()
	if err != nil {
		return 0, err
	}
	freq, err := a.Frequency()
	if err != nil {
		return 0, err
	}
	perMS := uint64(freq) / 1000
	if perMS == 0 {
		return 0, sys.ErrInvalid
	}
	return uint64(ticks) / perMS, nil
}

// SetRelative arms the physical alarm dt from now and returns the
// reference point reported by the kernel.
func (a Alarm) SetRelative(dt Convertible) (Ticks, error) {
	freq, err := a.Frequency()
	if err != nil {
		return 0, err
	}
	v, err := a.s.Command(DriverNum, cmdSetRelative, uint32(dt.ToTicks(freq)), 0).U32()
	return Ticks(v), err
}

// SetAbsolute arms the physical alarm dt ticks past the reference instant
// and returns the armed expiration.
func (a Alarm) SetAbsolute(reference, dt Ticks) (Ticks, error) {
	v, err := a.s.Command(DriverNum, cmdSetAbsolute, uint32(reference), uint32(dt)).U32()
	return Ticks(v), err
}

// Cancel disarms the physical alarm.
func (a Alarm) Cancel() error {
	return a.s.Command(DriverNum, cmdStop, 0, 0).Err()
}

// SleepFor blocks the calling task until the given duration elapses. It
// subscribes, arms the alarm, and suspends in YieldWait until the
// expiration upcall lands; the subscription is removed on every exit
// path.
func (a Alarm) SleepFor(d Convertible) error {
	freq, err := a.Frequency()
	if err != nil {
		return err
	}

	fired := false
	if err := a.s.Subscribe(DriverNum, SubscribeCallback, func(_, _, _ uint32) {
		fired = true
	}); err != nil {
		return err
	}
	defer a.s.Unsubscribe(DriverNum, SubscribeCallback)

	if _, err := a.s.Command(DriverNum, cmdSetRelative, uint32(d.ToTicks(freq)), 0).U32(); err != nil {
		return err
	}
	for !fired {
		a.s.YieldWait()
	}
	return nil
}
