package systest

import "libtock/sys"

// Alarm capsule ABI, kernel side.
const (
	alarmDriverNum uint32 = 0x0

	alarmCmdExists      uint32 = 0
	alarmCmdFrequency   uint32 = 1
	alarmCmdTime        uint32 = 2
	alarmCmdStop        uint32 = 3
	alarmCmdSetRelative uint32 = 5
	alarmCmdSetAbsolute uint32 = 6

	alarmSubCallback uint32 = 0
)

// Alarm is the fake alarm capsule: a wrapping 32-bit virtual tick counter
// and one physical alarm register. Tests advance time explicitly with
// Advance or SetTicks; demos set AutoFire so idle time jumps to the armed
// target.
type Alarm struct {
	k *Kernel

	// Freq is the reported tick frequency (default 1MHz).
	Freq uint32

	// AutoFire makes the capsule jump virtual time to the armed target
	// whenever the process suspends with nothing else pending.
	AutoFire bool

	// Stops counts stop commands observed, for rearm assertions.
	Stops int

	ticks  uint32
	armed  bool
	ref    uint32
	dt     uint32
	target uint32
}

// NewAlarm installs a fake alarm capsule into the kernel.
func NewAlarm(k *Kernel) *Alarm {
	a := &Alarm{k: k, Freq: 1_000_000}
	k.AddDriver(alarmDriverNum, a)
	return a
}

func (a *Alarm) Command(cmd, arg0, arg1 uint32) sys.CommandReturn {
	switch cmd {
	case alarmCmdExists:
		return sys.Success()
	case alarmCmdFrequency:
		return sys.SuccessU32(a.Freq)
	case alarmCmdTime:
		return sys.SuccessU32(a.ticks)
	case alarmCmdStop:
		a.armed = false
		a.Stops++
		return sys.Success()
	case alarmCmdSetRelative:
		return a.arm(a.ticks, arg0)
	case alarmCmdSetAbsolute:
		return a.arm(arg0, arg1)
	default:
		return sys.Failure(sys.ErrNoSupport)
	}
}

func (a *Alarm) arm(ref, dt uint32) sys.CommandReturn {
	a.ref = ref
	a.dt = dt
	a.target = ref + dt
	a.armed = true
	return sys.SuccessU32(a.target)
}

// Ticks returns the virtual tick counter.
func (a *Alarm) Ticks() uint32 { return a.ticks }

// SetTicks sets the virtual tick counter without firing anything.
func (a *Alarm) SetTicks(v uint32) { a.ticks = v }

// Armed reports whether the physical alarm is armed.
func (a *Alarm) Armed() bool { return a.armed }

// Target returns the tick value the physical alarm is armed for.
func (a *Alarm) Target() uint32 { return a.target }

// Advance moves virtual time forward by n ticks, wrapping the counter
// naturally and firing the alarm when its target is crossed. Hardware
// alarms fire once: time past the firing point keeps passing without
// further events until the process rearms.
func (a *Alarm) Advance(n uint64) {
	for n > 0 {
		if !a.armed {
			a.ticks += uint32(n % (1 << 32))
			return
		}
		remain := uint64(a.dt - (a.ticks - a.ref))
		if remain > n {
			a.ticks += uint32(n)
			return
		}
		a.ticks += uint32(remain)
		n -= remain
		a.fire()
	}
}

// fire disarms and queues the expiration upcall. The counter moves one
// tick past the armed instant first: interrupt latency means the process
// always observes the upcall after the firing point, which in particular
// puts a boundary fire on the far side of the wrap.
func (a *Alarm) fire() {
	a.armed = false
	a.ticks++
	a.k.QueueUpcall(alarmDriverNum, alarmSubCallback, a.ticks, a.target, 0)
}

// Idle implements the host-time synthesis hook: with AutoFire set, an
// armed alarm fires by jumping virtual time straight to its target.
func (a *Alarm) Idle() bool {
	if !a.AutoFire || !a.armed {
		return false
	}
	a.ticks = a.target
	a.fire()
	return true
}
