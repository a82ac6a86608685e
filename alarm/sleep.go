package alarm

import "libtock/sched"

// Sleep is a task that completes once the logical clock reaches an
// absolute instant.
type Sleep struct {
	d         *TimeDriver
	at        uint64
	scheduled bool
	err       error
}

// SleepUntil returns a task completing at the absolute logical instant at.
func (d *TimeDriver) SleepUntil(at uint64) *Sleep {
	return &Sleep{d: d, at: at}
}

// SleepTicks returns a task completing after dt logical ticks. The
// deadline saturates instead of wrapping past the end of the logical
// clock.
func (d *TimeDriver) SleepTicks(dt uint64) *Sleep {
	return &Sleep{d: d, at: addSat(d.Now(), dt)}
}

// SleepMilliseconds returns a task completing after the given duration,
// converted with the frequency latched at Init.
func (d *TimeDriver) SleepMilliseconds(ms uint32) *Sleep {
	dt := Milliseconds(ms).ToTicks(d.freq)
	return d.SleepTicks(uint64(dt))
}

func (s *Sleep) Poll(w sched.Waker) sched.Poll {
	if s.d.Now() >= s.at {
		return sched.Ready
	}
	if !s.scheduled {
		s.scheduled = true
		if err := s.d.ScheduleWake(s.at, w); err != nil {
			s.err = err
			return sched.Ready
		}
	}
	return sched.Pending
}

// Err reports a scheduling failure (deadline table full). Only meaningful
// after Poll has returned Ready.
func (s *Sleep) Err() error { return s.err }

func addSat(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// Timeout races an inner task against a deadline wake. There is no
// general cancellation of an in-flight operation: on timeout the race
// stops waiting, and the inner task's own cleanup (scope exit) revokes
// any buffers it shared.
type Timeout struct {
	d         *TimeDriver
	at        uint64
	inner     sched.Task
	scheduled bool
	timedOut  bool
}

// WithTimeout wraps inner so it completes no later than the absolute
// logical instant at.
func (d *TimeDriver) WithTimeout(at uint64, inner sched.Task) *Timeout {
	return &Timeout{d: d, at: at, inner: inner}
}

func (t *Timeout) Poll(w sched.Waker) sched.Poll {
	if t.inner.Poll(w) == sched.Ready {
		return sched.Ready
	}
	if t.d.Now() >= t.at {
		t.timedOut = true
		return sched.Ready
	}
	if !t.scheduled {
		t.scheduled = true
		if err := t.d.ScheduleWake(t.at, w); err != nil {
			t.timedOut = true
			return sched.Ready
		}
	}
	return sched.Pending
}

// TimedOut reports whether the deadline won the race.
func (t *Timeout) TimedOut() bool { return t.timedOut }
