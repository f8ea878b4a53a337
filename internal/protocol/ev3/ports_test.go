package ev3

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorPort_RoundTrip(t *testing.T) {
	for _, p := range []string{"1", "2", "3", "4"} {
		n, err := SensorPortLetterToNumber(p)
		require.NoError(t, err)
		got, err := SensorPortNumberToLetter(int(n))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	for n := 0; n < 4; n++ {
		l, err := SensorPortNumberToLetter(n)
		require.NoError(t, err)
		back, err := SensorPortLetterToNumber(l)
		require.NoError(t, err)
		assert.Equal(t, byte(n), back)
	}
}

func TestSensorPortLetterToNumber_Invalid(t *testing.T) {
	for _, in := range []string{"", "0", "5", "A", "12", "a", " 1"} {
		_, err := SensorPortLetterToNumber(in)
		assert.ErrorIs(t, err, ErrInvalidSensorPort, "input %q", in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestSensorPortNumberToLetter_Invalid(t *testing.T) {
	for _, n := range []int{-1, 4, 255} {
		_, err := SensorPortNumberToLetter(n)
		assert.ErrorIs(t, err, ErrInvalidPortNumber)
	}
}

func TestMotorPortLettersToBitfield(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    byte
		wantErr error
	}{
		{"单个A", "A", 1, nil},
		{"单个D", "D", 8, nil},
		{"AC组合", "AC", 5, nil},
		{"全部", "ABCD", 15, nil},
		{"乱序全部", "BADC", 15, nil},
		{"空串", "", 0, nil},
		{"重复字母", "AACB", 0, ErrMalformedPortLetters},
		{"重复字母2", "BB", 0, ErrMalformedPortLetters},
		{"未知字母", "AE", 0, ErrMalformedPortLetters},
		{"小写", "a", 0, ErrMalformedPortLetters},
		{"过长", "ABCDA", 0, ErrMalformedPortLetters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MotorPortLettersToBitfield(tt.in)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err=%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMotorPort_RoundTripCanonical(t *testing.T) {
	cases := map[string]string{
		"A":    "A",
		"CA":   "AC",
		"DB":   "BD",
		"DCBA": "ABCD",
		"BDA":  "ABD",
		"":     "",
	}
	for in, want := range cases {
		bits, err := MotorPortLettersToBitfield(in)
		require.NoError(t, err)
		got, err := BitfieldToMotorPortLetters(int(bits))
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}

	for n := 0; n <= 15; n++ {
		letters, err := BitfieldToMotorPortLetters(n)
		require.NoError(t, err)
		back, err := MotorPortLettersToBitfield(letters)
		require.NoError(t, err)
		assert.Equal(t, byte(n), back)
	}
}

func TestBitfieldToMotorPortLetters_Invalid(t *testing.T) {
	for _, n := range []int{-1, 16, 0xFF} {
		_, err := BitfieldToMotorPortLetters(n)
		assert.ErrorIs(t, err, ErrInvalidBitfield)
	}
}
