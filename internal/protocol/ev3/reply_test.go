package ev3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePercentage(t *testing.T) {
	v, err := DecodePercentage(&ReplyFrame{Type: DirectReply, Payload: []byte{100}})
	require.NoError(t, err)
	assert.Equal(t, int8(100), v)

	v, err = DecodePercentage(&ReplyFrame{Type: DirectReply, Payload: []byte{0xFF}})
	require.NoError(t, err)
	assert.Equal(t, int8(-1), v)

	for _, p := range [][]byte{nil, {1, 2}, {1, 2, 3, 4}} {
		_, err := DecodePercentage(&ReplyFrame{Type: DirectReply, Payload: p})
		assert.ErrorIs(t, err, ErrInvalidReply)
		assert.ErrorIs(t, err, ErrDecode)
	}
	_, err = DecodePercentage(nil)
	assert.ErrorIs(t, err, ErrInvalidReply)
}

func TestDecodeSI(t *testing.T) {
	// 12.5 = 0x41480000
	v, err := DecodeSI(&ReplyFrame{Type: DirectReply, Payload: []byte{0x00, 0x00, 0x48, 0x41}})
	require.NoError(t, err)
	assert.Equal(t, float32(12.5), v)

	v, err = DecodeSI(&ReplyFrame{Type: DirectReply, Payload: []byte{0x00, 0x00, 0x80, 0xBF}})
	require.NoError(t, err)
	assert.Equal(t, float32(-1), v)
}

func TestDecodeSI_RejectsWrongLength(t *testing.T) {
	// 标记 + 3 字节 = 4 字节
	_, err := DecodeSI(&ReplyFrame{Type: DirectReply, Payload: []byte{0x00, 0x00, 0x48}})
	assert.ErrorIs(t, err, ErrInvalidReply)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeSI(&ReplyFrame{Type: DirectReply, Payload: []byte{0, 0, 0, 0, 0}})
	assert.ErrorIs(t, err, ErrInvalidReply)
}

func TestReplyFrame_Bytes(t *testing.T) {
	r := &ReplyFrame{Type: DirectReply, Payload: []byte{1, 2}}
	assert.Equal(t, []byte{DirectReply, 1, 2}, r.Bytes())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNone, CodeOf(nil))
	assert.Equal(t, CodeNotConnected, CodeOf(ErrNotConnected))
	assert.Equal(t, CodeIllegalMotorPort, CodeOf(ErrMalformedPortLetters))
	assert.Equal(t, CodeInvalidReply, CodeOf(ErrBadReplyTag))
	assert.Equal(t, "protocol", ClassOf(ErrShortHeader))
	assert.Equal(t, "decode", ClassOf(ErrInvalidReply))
	assert.Equal(t, "validation", ClassOf(ErrFormatArity))
	assert.Equal(t, "link", ClassOf(ErrNoLink))
}
