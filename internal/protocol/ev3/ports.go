package ev3

import (
	"fmt"
	"strings"
)

// 传感器端口 "1".."4" <-> 0..3
// 电机端口 "A".."D" <-> 位域 bit0=A bit1=B bit2=C bit3=D

const motorLetters = "ABCD"

// SensorPortLetterToNumber 将 "1".."4" 转换为 0..3
func SensorPortLetterToNumber(letter string) (byte, error) {
	if len(letter) != 1 || letter[0] < '1' || letter[0] > '4' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSensorPort, letter)
	}
	return letter[0] - '1', nil
}

// SensorPortNumberToLetter 将 0..3 转换为 "1".."4"
func SensorPortNumberToLetter(n int) (string, error) {
	if n < 0 || n > 3 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPortNumber, n)
	}
	return string(rune('1' + n)), nil
}

// MotorPortLettersToBitfield 将电机端口字母组合转换为位域。
// 每个字母最多出现一次，顺序无关。
func MotorPortLettersToBitfield(letters string) (byte, error) {
	if len(letters) > 4 {
		return 0, fmt.Errorf("%w: %q too long", ErrMalformedPortLetters, letters)
	}
	var bits byte
	for i := 0; i < len(letters); i++ {
		idx := strings.IndexByte(motorLetters, letters[i])
		if idx < 0 {
			return 0, fmt.Errorf("%w: %q has unknown port %q", ErrMalformedPortLetters, letters, letters[i])
		}
		bit := byte(1) << idx
		if bits&bit != 0 {
			return 0, fmt.Errorf("%w: %q repeats port %q", ErrMalformedPortLetters, letters, letters[i])
		}
		bits |= bit
	}
	return bits, nil
}

// BitfieldToMotorPortLetters 将位域转换为按 A,B,C,D 排序的字母串
func BitfieldToMotorPortLetters(bits int) (string, error) {
	if bits < 0 || bits > 0x0F {
		return "", fmt.Errorf("%w: %d", ErrInvalidBitfield, bits)
	}
	var sb strings.Builder
	for i := 0; i < len(motorLetters); i++ {
		if bits&(1<<i) != 0 {
			sb.WriteByte(motorLetters[i])
		}
	}
	return sb.String(), nil
}
