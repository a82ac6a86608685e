package sys

// ErrorCode is the kernel's error taxonomy. The numeric values are part of
// the syscall ABI and must not change.
type ErrorCode uint32

const (
	ErrFail ErrorCode = iota + 1
	ErrBusy
	ErrAlready
	ErrOff
	ErrReserve
	ErrInvalid
	ErrSize
	ErrCancel
	ErrNoMem
	ErrNoSupport
	ErrNoDevice
	ErrUninstalled
	ErrNoAck
)

// ErrBadRVal reports that the kernel returned a result shape the caller
// could not interpret. It is produced in userspace, never by the kernel.
const ErrBadRVal ErrorCode = 1024

func (e ErrorCode) String() string {
	switch e {
	case ErrFail:
		return "fail"
	case ErrBusy:
		return "busy"
	case ErrAlready:
		return "already"
	case ErrOff:
		return "off"
	case ErrReserve:
		return "reserve"
	case ErrInvalid:
		return "invalid"
	case ErrSize:
		return "size"
	case ErrCancel:
		return "cancel"
	case ErrNoMem:
		return "no memory"
	case ErrNoSupport:
		return "not supported"
	case ErrNoDevice:
		return "no device"
	case ErrUninstalled:
		return "uninstalled"
	case ErrNoAck:
		return "no ack"
	case ErrBadRVal:
		return "bad return value"
	default:
		return "unknown"
	}
}

func (e ErrorCode) Error() string { return e.String() }

// ErrorCodeFrom converts a raw status word into an ErrorCode. ok is false
// for values outside the kernel's defined range, including 0 (success).
func ErrorCodeFrom(v uint32) (ErrorCode, bool) {
	if v >= uint32(ErrFail) && v <= uint32(ErrNoAck) {
		return ErrorCode(v), true
	}
	if v == uint32(ErrBadRVal) {
		return ErrBadRVal, true
	}
	return 0, false
}

// StatusToError maps an upcall status argument to an error. Status 0 means
// success; unknown non-zero values collapse to ErrFail.
func StatusToError(status uint32) error {
	if status == 0 {
		return nil
	}
	if code, ok := ErrorCodeFrom(status); ok {
		return code
	}
	return ErrFail
}
