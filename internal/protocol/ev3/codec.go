package ev3

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 格式字符（按位置从左到右消费）：
//
//	c  1 字节，有符号 int8
//	h  2 字节，小端有符号 int16
//	f  4 字节，小端 IEEE-754 float32
//	g  1 字节，操作码/子码标记字节（uint8）
//	x  跳过 1 字节（打包时写 0，不占用参数）
const (
	FmtByte  = 'c'
	FmtShort = 'h'
	FmtFloat = 'f'
	FmtTag   = 'g'
	FmtSkip  = 'x'
)

func fieldSize(c byte) int {
	switch c {
	case FmtByte, FmtTag, FmtSkip:
		return 1
	case FmtShort:
		return 2
	case FmtFloat:
		return 4
	}
	return -1
}

// Size 返回格式串对应的字节数
func Size(format string) (int, error) {
	n := 0
	for i := 0; i < len(format); i++ {
		sz := fieldSize(format[i])
		if sz < 0 {
			return 0, fmt.Errorf("%w: %q at %d", ErrUnknownFormat, format[i], i)
		}
		n += sz
	}
	return n, nil
}

// Arity 返回格式串需要的参数个数（不含 x）
func Arity(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != FmtSkip {
			n++
		}
	}
	return n
}

// Pack 按格式串打包参数。参数个数必须等于非 x 字符数。
func Pack(format string, values ...any) ([]byte, error) {
	size, err := Size(format)
	if err != nil {
		return nil, err
	}
	if want := Arity(format); want != len(values) {
		return nil, fmt.Errorf("%w: format %q wants %d values, got %d", ErrFormatArity, format, want, len(values))
	}
	buf := make([]byte, 0, size)
	vi := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == FmtSkip {
			buf = append(buf, 0)
			continue
		}
		v := values[vi]
		vi++
		switch c {
		case FmtByte:
			n, ok := toInt(v)
			if !ok || n < math.MinInt8 || n > math.MaxInt8 {
				return nil, fmt.Errorf("%w: %v for %q at %d", ErrValueRange, v, c, i)
			}
			buf = append(buf, byte(int8(n)))
		case FmtTag:
			n, ok := toInt(v)
			if !ok || n < 0 || n > math.MaxUint8 {
				return nil, fmt.Errorf("%w: %v for %q at %d", ErrValueRange, v, c, i)
			}
			buf = append(buf, byte(n))
		case FmtShort:
			n, ok := toInt(v)
			if !ok || n < math.MinInt16 || n > math.MaxInt16 {
				return nil, fmt.Errorf("%w: %v for %q at %d", ErrValueRange, v, c, i)
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(n)))
		case FmtFloat:
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: %v for %q at %d", ErrValueRange, v, c, i)
			}
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf, nil
}

// Unpack 按格式串解包。b 的长度必须与格式串精确一致。
// 返回值类型：c→int8 h→int16 f→float32 g→uint8
func Unpack(format string, b []byte) ([]any, error) {
	size, err := Size(format)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: format %q wants %d bytes, got %d", ErrBufferLength, format, size, len(b))
	}
	out := make([]any, 0, Arity(format))
	off := 0
	for i := 0; i < len(format); i++ {
		switch format[i] {
		case FmtSkip:
			off++
		case FmtByte:
			out = append(out, int8(b[off]))
			off++
		case FmtTag:
			out = append(out, b[off])
			off++
		case FmtShort:
			out = append(out, int16(binary.LittleEndian.Uint16(b[off:])))
			off += 2
		case FmtFloat:
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
			off += 4
		}
	}
	return out, nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		return uintToInt(uint64(n))
	case uint64:
		return uintToInt(n)
	case uintptr:
		return uintToInt(uint64(n))
	}
	return 0, false
}

func uintToInt(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	}
	if i, ok := toInt(v); ok {
		return float32(i), true
	}
	return 0, false
}
