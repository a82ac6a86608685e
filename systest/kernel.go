// Package systest is a fake in-process kernel implementing sys.Syscalls,
// so driver code and tests run against programmable capsules instead of
// hardware. It keeps the real kernel's delivery discipline: upcalls are
// queued by capsules and handed to process code only from inside
// YieldWait, one per call, on the calling goroutine.
package systest

import "libtock/sys"

type key struct {
	driver uint32
	num    uint32
}

type queuedUpcall struct {
	driver uint32
	sub    uint32
	args   [3]uint32
}

// Driver is one fake capsule.
type Driver interface {
	Command(cmd, arg0, arg1 uint32) sys.CommandReturn
}

// IdleDriver is an optional capsule hook invoked when the process
// suspends with no upcall pending. A capsule returning true has produced
// new events (the fake alarm advances virtual time this way, like real
// hardware running while the process sleeps).
type IdleDriver interface {
	Idle() bool
}

// Kernel is the fake kernel state: capsule table, grant tables,
// subscription table, and the pending-upcall queue.
type Kernel struct {
	order   []uint32
	drivers map[uint32]Driver
	ro      map[key][]byte
	rw      map[key][]byte
	subs    map[key]sys.Upcall
	pending []queuedUpcall

	// Yields counts YieldWait calls, for scheduling assertions.
	Yields int
}

var _ sys.Syscalls = (*Kernel)(nil)

// NewKernel creates an empty fake kernel with no capsules installed.
func NewKernel() *Kernel {
	return &Kernel{
		drivers: make(map[uint32]Driver),
		ro:      make(map[key][]byte),
		rw:      make(map[key][]byte),
		subs:    make(map[key]sys.Upcall),
	}
}

// AddDriver installs a capsule under a driver number.
func (k *Kernel) AddDriver(num uint32, d Driver) {
	if _, ok := k.drivers[num]; !ok {
		k.order = append(k.order, num)
	}
	k.drivers[num] = d
}

// QueueUpcall schedules an upcall for delivery at the process's next
// suspension point. Capsules call this; tests may too.
func (k *Kernel) QueueUpcall(driver, sub, arg0, arg1, arg2 uint32) {
	k.pending = append(k.pending, queuedUpcall{
		driver: driver,
		sub:    sub,
		args:   [3]uint32{arg0, arg1, arg2},
	})
}

func (k *Kernel) Command(driverNum, commandNum, arg0, arg1 uint32) sys.CommandReturn {
	d, ok := k.drivers[driverNum]
	if !ok {
		return sys.Failure(sys.ErrNoDevice)
	}
	return d.Command(commandNum, arg0, arg1)
}

func (k *Kernel) AllowReadOnly(driverNum, bufferNum uint32, buf []byte) ([]byte, error) {
	id := key{driverNum, bufferNum}
	prev := k.ro[id]
	k.ro[id] = buf
	return prev, nil
}

func (k *Kernel) AllowReadWrite(driverNum, bufferNum uint32, buf []byte) ([]byte, error) {
	id := key{driverNum, bufferNum}
	prev := k.rw[id]
	k.rw[id] = buf
	return prev, nil
}

func (k *Kernel) UnallowReadOnly(driverNum, bufferNum uint32) {
	delete(k.ro, key{driverNum, bufferNum})
}

func (k *Kernel) UnallowReadWrite(driverNum, bufferNum uint32) {
	delete(k.rw, key{driverNum, bufferNum})
}

func (k *Kernel) Subscribe(driverNum, subscribeNum uint32, fn sys.Upcall) error {
	if fn == nil {
		return sys.ErrInvalid
	}
	k.subs[key{driverNum, subscribeNum}] = fn
	return nil
}

func (k *Kernel) Unsubscribe(driverNum, subscribeNum uint32) {
	delete(k.subs, key{driverNum, subscribeNum})
}

// YieldWait suspends the process until one upcall has been delivered.
// Queued upcalls whose subscription has been removed are dropped. If the
// queue drains without a delivery and no capsule produces events from its
// Idle hook, the process would wait forever (a lost callback); that is a
// fatal condition, surfaced here as a panic so tests fail loudly instead
// of hanging.
func (k *Kernel) YieldWait() {
	k.Yields++
	for {
		for len(k.pending) > 0 {
			u := k.pending[0]
			k.pending = k.pending[1:]
			fn := k.subs[key{u.driver, u.sub}]
			if fn == nil {
				continue
			}
			fn(u.args[0], u.args[1], u.args[2])
			return
		}
		if !k.idle() {
			panic("systest: yield-wait would block forever (lost upcall?)")
		}
	}
}

func (k *Kernel) idle() bool {
	for _, num := range k.order {
		if d, ok := k.drivers[num].(IdleDriver); ok && d.Idle() {
			return true
		}
	}
	return false
}

// RoGrant returns the live read-only grant for a driver/slot pair, or nil.
func (k *Kernel) RoGrant(driverNum, bufferNum uint32) []byte {
	return k.ro[key{driverNum, bufferNum}]
}

// RwGrant returns the live read-write grant for a driver/slot pair, or
// nil.
func (k *Kernel) RwGrant(driverNum, bufferNum uint32) []byte {
	return k.rw[key{driverNum, bufferNum}]
}

// Subscribed reports whether a driver/subscribe-id pair has a live
// registration.
func (k *Kernel) Subscribed(driverNum, subscribeNum uint32) bool {
	return k.subs[key{driverNum, subscribeNum}] != nil
}

// PendingUpcalls reports the queued, undelivered upcall count.
func (k *Kernel) PendingUpcalls() int { return len(k.pending) }
