// Package upcall implements the upcall-to-future handoff used by every
// asynchronous driver: a single-writer (kernel callback) / single-reader
// (suspended task) completion cell, guarded by a busy flag that admits at
// most one outstanding transaction per driver instance.
package upcall

import (
	"libtock/sched"
	"libtock/sys"
)

// Result carries the three arguments of one delivered upcall.
type Result struct {
	Arg0, Arg1, Arg2 uint32
}

// Slot is the per-driver handoff cell. Each driver owns exactly one Slot
// per subscribe id, process-wide: the kernel supports one outstanding
// operation per driver/subscribe-id, so a second Begin while one is
// outstanding fails with ErrBusy instead of racing kernel state.
type Slot struct {
	busy    bool
	full    bool
	res     Result
	waker   sched.Waker
	waiters []sched.Waker
}

// Begin claims the slot for a new transaction. It fails with ErrBusy if an
// operation is already outstanding; the caller must not touch kernel state
// in that case.
func (s *Slot) Begin() error {
	if s.busy {
		return sys.ErrBusy
	}
	s.busy = true
	s.full = false
	s.res = Result{}
	return nil
}

// End releases the slot after the result has been consumed, permitting the
// next transaction. Also used to back out of a Begin whose command failed
// and will therefore produce no completion. Tasks queued behind the busy
// flag are woken to re-race Begin.
func (s *Slot) End() {
	s.busy = false
	s.full = false
	s.waker = sched.Waker{}
	waiters := s.waiters
	s.waiters = s.waiters[:0]
	for _, w := range waiters {
		w.Wake()
	}
}

// AwaitIdle registers w to be woken when the slot is next released. A task
// that found the slot busy parks here instead of spinning; being woken does
// not reserve the slot, so the task must retry Begin.
func (s *Slot) AwaitIdle(w sched.Waker) {
	s.waiters = append(s.waiters, w)
}

// Busy reports whether a transaction is outstanding.
func (s *Slot) Busy() bool { return s.busy }

// Complete stores the result and wakes the waiting task. It is the
// subscribe target: exactly one Complete corresponds to one Begin. A
// completion arriving with no transaction outstanding is dropped.
func (s *Slot) Complete(arg0, arg1, arg2 uint32) {
	if !s.busy {
		return
	}
	s.res = Result{Arg0: arg0, Arg1: arg1, Arg2: arg2}
	s.full = true
	w := s.waker
	s.waker = sched.Waker{}
	w.Wake()
}

// Poll drains the result if the completion has arrived; otherwise it
// registers w to be woken by Complete and reports not-ready.
func (s *Slot) Poll(w sched.Waker) (Result, bool) {
	if s.full {
		s.full = false
		return s.res, true
	}
	s.waker = w
	return Result{}, false
}
