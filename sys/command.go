package sys

// ReturnVariant identifies the shape of a command return.
type ReturnVariant uint8

const (
	ReturnFailure ReturnVariant = iota
	ReturnSuccess
	ReturnSuccessU32
	ReturnSuccessU32U32
	ReturnSuccessU32U64
)

func (v ReturnVariant) String() string {
	switch v {
	case ReturnFailure:
		return "failure"
	case ReturnSuccess:
		return "success"
	case ReturnSuccessU32:
		return "success u32"
	case ReturnSuccessU32U32:
		return "success u32 u32"
	case ReturnSuccessU32U64:
		return "success u32 u64"
	default:
		return "unknown"
	}
}

// CommandReturn is the result of one Command syscall: success or failure,
// plus up to one u32 or a packed (u32, u64) payload.
type CommandReturn struct {
	variant ReturnVariant
	code    ErrorCode
	args    [3]uint32
}

func Success() CommandReturn {
	return CommandReturn{variant: ReturnSuccess}
}

func SuccessU32(a uint32) CommandReturn {
	return CommandReturn{variant: ReturnSuccessU32, args: [3]uint32{a}}
}

func SuccessU32U32(a, b uint32) CommandReturn {
	return CommandReturn{variant: ReturnSuccessU32U32, args: [3]uint32{a, b}}
}

func SuccessU32U64(a uint32, b uint64) CommandReturn {
	return CommandReturn{
		variant: ReturnSuccessU32U64,
		args:    [3]uint32{a, uint32(b), uint32(b >> 32)},
	}
}

func Failure(code ErrorCode) CommandReturn {
	return CommandReturn{variant: ReturnFailure, code: code}
}

func (r CommandReturn) Variant() ReturnVariant { return r.variant }

// Err returns the failure code, or nil for any success variant.
func (r CommandReturn) Err() error {
	if r.variant == ReturnFailure {
		return r.code
	}
	return nil
}

// U32 unpacks a success-with-u32 return. A success of any other shape is
// reported as ErrBadRVal.
func (r CommandReturn) U32() (uint32, error) {
	switch r.variant {
	case ReturnFailure:
		return 0, r.code
	case ReturnSuccessU32:
		return r.args[0], nil
	default:
		return 0, ErrBadRVal
	}
}

// U32U32 unpacks a success-with-two-u32 return.
func (r CommandReturn) U32U32() (uint32, uint32, error) {
	switch r.variant {
	case ReturnFailure:
		return 0, 0, r.code
	case ReturnSuccessU32U32:
		return r.args[0], r.args[1], nil
	default:
		return 0, 0, ErrBadRVal
	}
}

// U32U64 unpacks a success-with-packed-(u32,u64) return.
func (r CommandReturn) U32U64() (uint32, uint64, error) {
	switch r.variant {
	case ReturnFailure:
		return 0, 0, r.code
	case ReturnSuccessU32U64:
		return r.args[0], uint64(r.args[2])<<32 | uint64(r.args[1]), nil
	default:
		return 0, 0, ErrBadRVal
	}
}
