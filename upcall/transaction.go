package upcall

import (
	"libtock/sched"
	"libtock/sys"
)

// Transaction runs one asynchronous driver operation through its Slot:
// claim the busy flag, allow buffers and issue the command (Start),
// suspend until the kernel delivers the completion, then interpret the
// result (Finish) and revoke buffers (Cleanup). It implements sched.Task
// so it can be spawned on an executor or driven by sched.Block.
type Transaction struct {
	// Slot is the driver's handoff cell.
	Slot *Slot

	// Start allows buffers and issues the Command. A Start error aborts
	// the transaction: no completion will arrive, so the slot is released
	// immediately.
	Start func() error

	// Finish interprets the completion result. It may return an error to
	// surface a kernel-reported failure.
	Finish func(Result) error

	// Cleanup revokes buffers. It runs exactly once on every completed or
	// aborted transaction, before the slot is released.
	Cleanup func()

	// RetryBusy makes Poll treat a busy slot as "park and retry" instead
	// of failing: the task waits for the slot's release and races Begin
	// again. Byte-stream writers use this; the primitive itself never
	// retries.
	RetryBusy bool

	stage uint8
	err   error
}

const (
	stageStart uint8 = iota
	stageWait
	stageDone
)

// Poll advances the transaction. On Ready the outcome is available via
// Err.
func (t *Transaction) Poll(w sched.Waker) sched.Poll {
	switch t.stage {
	case stageStart:
		if err := t.Slot.Begin(); err != nil {
			if t.RetryBusy {
				t.Slot.AwaitIdle(w)
				return sched.Pending
			}
			return t.fail(err)
		}
		if err := t.Start(); err != nil {
			t.cleanup()
			t.Slot.End()
			return t.fail(err)
		}
		t.stage = stageWait
		fallthrough
	case stageWait:
		res, ok := t.Slot.Poll(w)
		if !ok {
			return sched.Pending
		}
		t.cleanup()
		if t.Finish != nil {
			t.err = t.Finish(res)
		}
		t.Slot.End()
		t.stage = stageDone
		return sched.Ready
	default:
		return sched.Ready
	}
}

func (t *Transaction) cleanup() {
	if t.Cleanup != nil {
		t.Cleanup()
	}
}

func (t *Transaction) fail(err error) sched.Poll {
	t.err = err
	t.stage = stageDone
	return sched.Ready
}

// Err returns the transaction outcome. Only meaningful after Poll has
// returned Ready.
func (t *Transaction) Err() error { return t.err }

// Wait drives the transaction to completion synchronously, suspending in
// YieldWait between polls.
func (t *Transaction) Wait(s sys.Syscalls) error {
	sched.Block(s, t)
	return t.err
}
