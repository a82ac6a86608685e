package alarm

import (
	"libtock/sched"
	"libtock/sys"
)

// TimeDriver multiplexes software deadlines onto the one physical alarm
// and maintains the 64-bit monotonic logical clock:
//
//	logical time = overflows<<32 | hardware ticks
//
// The physical alarm is always armed for the earlier of the next pending
// deadline and the next overflow boundary of the 32-bit counter, so that
// every wraparound is observed and counted exactly once.
//
// All methods run under the process's single-threaded cooperative
// discipline; the upcall handler is kernel-invoked synchronous code and
// never suspends.
type TimeDriver struct {
	s    sys.Syscalls
	freq Hz

	overflows    uint32
	overflowNext bool
	armedAt      uint64
	queue        deadlineQueue
}

// NewTimeDriver creates an uninitialized time driver over the given
// kernel bridge.
func NewTimeDriver(s sys.Syscalls) *TimeDriver {
	return &TimeDriver{s: s}
}

// Init subscribes the expiration handler and arms the physical alarm at
// the counter's next overflow boundary. It must run once, before any task
// uses the logical clock.
//
// Init panics if the alarm capsule is absent: without a timer capability
// no scheduling is possible at all, so the process cannot make forward
// progress.
func (d *TimeDriver) Init() {
	a := Alarm{s: d.s}
	if err := a.Exists(); err != nil {
		panic("alarm: capsule not present in kernel: " + err.Error())
	}
	freq, err := a.Frequency()
	if err != nil {
		panic("alarm: frequency: " + err.Error())
	}
	d.freq = freq

	if err := d.s.Subscribe(DriverNum, SubscribeCallback, d.handleAlarm); err != nil {
		panic("alarm: subscribe: " + err.Error())
	}

	now, err := a.Ticks()
	if err != nil {
		panic("alarm: ticks: " + err.Error())
	}
	d.overflowNext = true
	d.armedAt = uint64(now) | 0xFFFFFFFF
	if _, err := a.SetAbsolute(now, Ticks(^uint32(0)-uint32(now))); err != nil {
		panic("alarm: arm overflow: " + err.Error())
	}
}

// Frequency returns the hardware tick frequency latched at Init.
func (d *TimeDriver) Frequency() Hz { return d.freq }

// Now combines the raw tick register with the overflow count into the
// 64-bit logical time. It never suspends.
func (d *TimeDriver) Now() uint64 {
	ticks, err := Alarm{s: d.s}.Ticks()
	if err != nil {
		panic("alarm: ticks: " + err.Error())
	}
	return uint64(d.overflows)<<32 | uint64(ticks)
}

// ScheduleWake registers w to be woken once the logical clock reaches at.
// If the new deadline is earlier than the currently armed target, the
// physical alarm is rearmed; otherwise the armed target stands. A
// deadline already in the past wakes w immediately. ErrNoMem is returned
// when the deadline table is full.
func (d *TimeDriver) ScheduleWake(at uint64, w sched.Waker) error {
	if !d.queue.schedule(at, w) {
		return sys.ErrNoMem
	}
	now := d.Now()
	next := d.queue.nextExpiration(now)
	if next < d.armedAt {
		d.setAlarm(now, next)
	}
	return nil
}

// PendingDeadlines reports the number of queued wake requests.
func (d *TimeDriver) PendingDeadlines() int { return d.queue.pending() }

// handleAlarm is the physical-alarm upcall. If the armed target was the
// overflow boundary, the overflow count advances by exactly one. Every
// deadline at or before now is woken, then the alarm is rearmed for the
// earlier of the next remaining deadline and the next overflow boundary.
//
// The upcall's fire-time tick snapshot is ignored: by the time the
// upcall is delivered the counter has moved on (past the wrap, for a
// boundary fire), so logical now is recomputed from a fresh register
// read under the updated overflow count.
func (d *TimeDriver) handleAlarm(_, _, _ uint32) {
	if d.overflowNext {
		d.overflows++
		d.overflowNext = false
	}
	now := d.Now()
	next := d.queue.nextExpiration(now)
	d.armedAt = noDeadline
	d.setAlarm(now, next)
}

// setAlarm arms the physical alarm for min(target, next overflow
// boundary), latching overflowNext when the boundary is the nearer of the
// two.
func (d *TimeDriver) setAlarm(now, target uint64) {
	boundary := now | 0xFFFFFFFF
	if target >= boundary {
		target = boundary
		d.overflowNext = true
	} else {
		d.overflowNext = false
	}
	d.armedAt = target

	a := Alarm{s: d.s}
	_ = a.Cancel()
	if _, err := a.SetAbsolute(Ticks(uint32(now)), Ticks(uint32(target-now))); err != nil {
		panic("alarm: rearm: " + err.Error())
	}
}

// ArmedAt returns the logical instant the physical alarm is currently
// armed for.
func (d *TimeDriver) ArmedAt() uint64 { return d.armedAt }
