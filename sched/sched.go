// Package sched is a single-threaded cooperative executor. Tasks expose a
// poll-and-suspend contract: Poll either completes or parks the task until
// the Waker it was handed is woken by an upcall handler. When no task is
// runnable the executor calls YieldWait, which is the only point at which
// the kernel delivers upcalls.
package sched

import "libtock/sys"

const maxTasks = 32

// Poll is the outcome of polling a task or future.
type Poll uint8

const (
	Pending Poll = iota
	Ready
)

func (p Poll) String() string {
	switch p {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Task is a cooperative unit of execution. Poll runs until the task either
// completes (Ready) or reaches a suspension point (Pending). A task
// returning Pending must have arranged for w to be woken, or it will never
// be polled again.
type Task interface {
	Poll(w Waker) Poll
}

// Waker marks one executor task runnable. The zero Waker is valid and
// wakes nothing, which lets synchronous callers poll without an executor.
type Waker struct {
	ex *Executor
	id uint8
}

// Wake marks the task runnable. Calling Wake more than once before the
// next poll coalesces into a single wake.
func (w Waker) Wake() {
	if w.ex != nil {
		w.ex.wake(w.id)
	}
}

// Executor drives up to 32 tasks on the calling goroutine.
type Executor struct {
	s        sys.Syscalls
	tasks    [maxTasks]Task
	live     uint32
	runnable uint32
}

// New creates an executor over the given kernel bridge.
func New(s sys.Syscalls) *Executor {
	return &Executor{s: s}
}

// Spawn registers a task and marks it runnable. It reports false when all
// task slots are occupied.
func (ex *Executor) Spawn(t Task) bool {
	for id := 0; id < maxTasks; id++ {
		bit := uint32(1) << id
		if ex.live&bit != 0 {
			continue
		}
		ex.tasks[id] = t
		ex.live |= bit
		ex.runnable |= bit
		return true
	}
	return false
}

func (ex *Executor) wake(id uint8) {
	bit := uint32(1) << id
	if ex.live&bit != 0 {
		ex.runnable |= bit
	}
}

// Run polls runnable tasks until every spawned task has completed. When
// no task is runnable it suspends in YieldWait until an upcall wakes one.
func (ex *Executor) Run() {
	for ex.live != 0 {
		if ex.runnable == 0 {
			ex.s.YieldWait()
			continue
		}
		for id := 0; id < maxTasks; id++ {
			bit := uint32(1) << id
			if ex.runnable&bit == 0 {
				continue
			}
			ex.runnable &^= bit
			if ex.tasks[id].Poll(Waker{ex: ex, id: uint8(id)}) == Ready {
				ex.tasks[id] = nil
				ex.live &^= bit
				ex.runnable &^= bit
			}
		}
	}
}

// Block runs a single task to completion without an executor: it polls
// with the zero Waker and suspends in YieldWait between polls. Upcall
// handlers waking the zero Waker are no-ops, so every delivered upcall
// simply triggers a re-poll.
func Block(s sys.Syscalls, t Task) {
	for t.Poll(Waker{}) != Ready {
		s.YieldWait()
	}
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(w Waker) Poll

func (f TaskFunc) Poll(w Waker) Poll { return f(w) }
