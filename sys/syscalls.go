// Package sys defines the four-primitive syscall ABI between an
// application process and the kernel: Command, Allow (read-only and
// read-write), Subscribe, and their revocation counterparts, plus
// yield-wait as the single upcall delivery point.
//
// The kernel is an external collaborator behind the Syscalls interface.
// Everything above this package is single-threaded cooperative code:
// upcalls are delivered only from inside YieldWait, on the goroutine that
// called it, so driver state needs no locks.
package sys

// Upcall is a kernel-delivered completion callback carrying the three
// upcall arguments defined by the subscribed capsule.
type Upcall func(arg0, arg1, arg2 uint32)

// Syscalls is the kernel bridge. Implementations must be non-reentrant
// with respect to the calling process: YieldWait delivers at most the
// pending upcalls and returns, and no primitive is invoked concurrently
// with itself.
type Syscalls interface {
	// Command issues a synchronous, non-blocking request to a capsule.
	Command(driverNum, commandNum, arg0, arg1 uint32) CommandReturn

	// AllowReadOnly grants the kernel read access to buf for the given
	// driver/slot pair, replacing any prior grant for that slot. The
	// displaced buffer (nil if none) is returned to the caller.
	AllowReadOnly(driverNum, bufferNum uint32, buf []byte) ([]byte, error)

	// AllowReadWrite grants the kernel read-write access to buf,
	// replacing any prior grant for that slot.
	AllowReadWrite(driverNum, bufferNum uint32, buf []byte) ([]byte, error)

	// UnallowReadOnly revokes the read-only grant for a slot. Idempotent.
	UnallowReadOnly(driverNum, bufferNum uint32)

	// UnallowReadWrite revokes the read-write grant for a slot. Idempotent.
	UnallowReadWrite(driverNum, bufferNum uint32)

	// Subscribe registers the upcall for a driver/subscribe-id pair,
	// replacing any prior registration.
	Subscribe(driverNum, subscribeNum uint32, fn Upcall) error

	// Unsubscribe removes the upcall for a driver/subscribe-id pair.
	// Idempotent.
	Unsubscribe(driverNum, subscribeNum uint32)

	// YieldWait suspends the process until the kernel delivers at least
	// one upcall. It is the only point at which process code re-enters.
	YieldWait()
}
