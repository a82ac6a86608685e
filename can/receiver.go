package can

import (
	"libtock/sched"
	"libtock/share"
	"libtock/sys"
)

// Receiver owns the capsule's receive path: the shared receive buffer,
// the new-message subscription, and a wait primitive for tasks. Unlike a
// transaction, the received upcall is an unsolicited notification that
// repeats for as long as receiving is enabled.
//
// One Receiver per process: the receive buffer and subscription are
// process-wide kernel resources.
type Receiver struct {
	c       Can
	buf     *share.RwBuffer
	started bool
	pending bool
	waker   sched.Waker
}

// NewReceiver allocates the receive buffer and wraps the receive path.
func (c Can) NewReceiver() *Receiver {
	raw := make([]byte, ReceiveBufferSize)
	return &Receiver{
		c:   c,
		buf: share.NewRw(c.s, DriverNum, allowRwMessage, raw),
	}
}

// Start shares the receive buffer, subscribes the new-message handler,
// and enables reception. A capsule already receiving (ErrAlready) is
// treated as success. On any failure the grant and subscription are
// revoked before returning.
func (r *Receiver) Start() error {
	if r.started {
		return nil
	}
	if err := r.c.s.Subscribe(DriverNum, subscribeReceived, r.notify); err != nil {
		return err
	}
	if err := r.buf.Allow(); err != nil {
		r.c.s.Unsubscribe(DriverNum, subscribeReceived)
		return err
	}
	if err := r.c.s.Command(DriverNum, cmdStartReceive, 0, 0).Err(); err != nil && err != sys.ErrAlready {
		r.buf.Unallow()
		r.c.s.Unsubscribe(DriverNum, subscribeReceived)
		return err
	}
	r.started = true
	return nil
}

// Stop disables reception and revokes the buffer grant and subscription.
// The kernel must not retain a view into the buffer once the receiver is
// stopped.
func (r *Receiver) Stop() error {
	if !r.started {
		return nil
	}
	r.started = false
	err := r.c.s.Command(DriverNum, cmdStopReceive, 0, 0).Err()
	r.buf.Unallow()
	r.c.s.Unsubscribe(DriverNum, subscribeReceived)
	return err
}

func (r *Receiver) notify(_, _, _ uint32) {
	r.pending = true
	w := r.waker
	r.waker = sched.Waker{}
	w.Wake()
}

// WaitMessage returns a task that completes once at least one new-message
// notification has arrived since the last wait.
func (r *Receiver) WaitMessage() sched.Task {
	return sched.TaskFunc(func(w sched.Waker) sched.Poll {
		if r.pending {
			r.pending = false
			return sched.Ready
		}
		r.waker = w
		return sched.Pending
	})
}

// Wait blocks until a new-message notification arrives.
func (r *Receiver) Wait() {
	sched.Block(r.c.s, r.WaitMessage())
}

// ReadMessages drains unread frames; see Can.ReadMessages.
func (r *Receiver) ReadMessages() (Frames, error) {
	return r.c.ReadMessages()
}
