package ev3

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_Arity(t *testing.T) {
	_, err := Pack("hh", 1)
	assert.ErrorIs(t, err, ErrFormatArity)
	assert.ErrorIs(t, err, ErrValidation)

	b, err := Pack("hh", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x02, 0x00}, b)

	_, err = Pack("xc", 1, 2)
	assert.ErrorIs(t, err, ErrFormatArity)
}

func TestPack_Layout(t *testing.T) {
	b, err := Pack("cghfx", -1, byte(0x99), -2, float32(1.5))
	require.NoError(t, err)
	require.Len(t, b, 1+1+2+4+1)
	assert.Equal(t, byte(0xFF), b[0])
	assert.Equal(t, byte(0x99), b[1])
	assert.Equal(t, []byte{0xFE, 0xFF}, b[2:4])
	assert.Equal(t, math.Float32bits(1.5), uint32(b[4])|uint32(b[5])<<8|uint32(b[6])<<16|uint32(b[7])<<24)
	assert.Equal(t, byte(0), b[8])
}

func TestPack_Errors(t *testing.T) {
	_, err := Pack("q", 1)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Pack("c", 128)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = Pack("g", -1)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = Pack("h", 40000)
	assert.ErrorIs(t, err, ErrValueRange)

	_, err = Pack("f", "1.0")
	assert.ErrorIs(t, err, ErrValueRange)
}

func TestPack_UnsignedInputs(t *testing.T) {
	tests := []struct {
		name   string
		format string
		value  any
		want   []byte
	}{
		{"uint 短整数", "h", uint(5), []byte{0x05, 0x00}},
		{"uint64 字节", "c", uint64(127), []byte{0x7F}},
		{"uintptr 标记", "g", uintptr(0xA4), []byte{0xA4}},
		{"uint 浮点", "f", uint(2), []byte{0x00, 0x00, 0x00, 0x40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Pack(tt.format, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
		})
	}

	_, err := Pack("h", uint64(math.MaxUint64))
	assert.ErrorIs(t, err, ErrValueRange)
	_, err = Pack("c", uint(200))
	assert.ErrorIs(t, err, ErrValueRange)
}

func TestUnpack(t *testing.T) {
	vals, err := Unpack("xf", []byte{0x02, 0x00, 0x00, 0x20, 0x41})
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, float32(10), vals[0])

	vals, err = Unpack("hh", []byte{0x06, 0x00, 0x2A, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []any{int16(6), int16(42)}, vals)

	vals, err = Unpack("cg", []byte{0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, []any{int8(-1), byte(0xFF)}, vals)
}

func TestUnpack_ExactLength(t *testing.T) {
	_, err := Unpack("xf", []byte{0x02, 0x00, 0x00, 0x20})
	assert.ErrorIs(t, err, ErrBufferLength)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Unpack("c", []byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrBufferLength)
}

func TestPackUnpack_Values(t *testing.T) {
	b, err := Pack("chf", int8(-100), int16(-30000), 3.25)
	require.NoError(t, err)
	vals, err := Unpack("chf", b)
	require.NoError(t, err)
	assert.Equal(t, []any{int8(-100), int16(-30000), float32(3.25)}, vals)
}
