package sys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandReturnErr(t *testing.T) {
	require.NoError(t, Success().Err())
	require.NoError(t, SuccessU32(7).Err())

	err := Failure(ErrBusy).Err()
	require.Error(t, err)
	assert.Equal(t, ErrBusy, err)
}

func TestCommandReturnU32(t *testing.T) {
	v, err := SuccessU32(42).U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = Failure(ErrNoDevice).U32()
	assert.Equal(t, ErrNoDevice, err)
}

func TestCommandReturnWrongShape(t *testing.T) {
	_, err := Success().U32()
	assert.Equal(t, ErrBadRVal, err)

	_, _, err = SuccessU32(1).U32U32()
	assert.Equal(t, ErrBadRVal, err)

	_, _, err = SuccessU32U32(1, 2).U32U64()
	assert.Equal(t, ErrBadRVal, err)
}

func TestCommandReturnU32U64Packing(t *testing.T) {
	status, payload, err := SuccessU32U64(5, 0x0102030405060708).U32U64()
	require.NoError(t, err)
	assert.Equal(t, uint32(5), status)
	assert.Equal(t, uint64(0x0102030405060708), payload)
}

func TestErrorCodeFrom(t *testing.T) {
	code, ok := ErrorCodeFrom(uint32(ErrNoAck))
	require.True(t, ok)
	assert.Equal(t, ErrNoAck, code)

	_, ok = ErrorCodeFrom(0)
	assert.False(t, ok)

	_, ok = ErrorCodeFrom(uint32(ErrNoAck) + 1)
	assert.False(t, ok)

	code, ok = ErrorCodeFrom(uint32(ErrBadRVal))
	require.True(t, ok)
	assert.Equal(t, ErrBadRVal, code)
}

func TestStatusToError(t *testing.T) {
	require.NoError(t, StatusToError(0))
	assert.Equal(t, ErrInvalid, StatusToError(uint32(ErrInvalid)))
	assert.Equal(t, ErrFail, StatusToError(9999))
}

func TestErrorCodeStrings(t *testing.T) {
	assert.Equal(t, "busy", ErrBusy.Error())
	assert.Equal(t, "unknown", ErrorCode(500).String())
}
