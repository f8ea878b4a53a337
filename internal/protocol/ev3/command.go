package ev3

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeDirectCommand 构造 Direct Command 命令体（不含长度与序号头）。
//
// 布局：type[1] | globalLow[1] | (local<<2 | globalHigh)[1] | opcode[1] | args...
// 相同输入总是得到相同字节序列。
func EncodeDirectCommand(opcode byte, replyRequired bool, globalSize, localSize int, argFormat string, args ...any) ([]byte, error) {
	if globalSize < 0 || globalSize > MaxGlobalSize {
		return nil, fmt.Errorf("%w: global %d", ErrBufferSize, globalSize)
	}
	if localSize < 0 || localSize > MaxLocalSize {
		return nil, fmt.Errorf("%w: local %d", ErrBufferSize, localSize)
	}
	argBytes, err := Pack(argFormat, args...)
	if err != nil {
		return nil, err
	}
	cmdType := DirectCommandNoReply
	if replyRequired {
		cmdType = DirectCommandReply
	}
	buf := make([]byte, 0, 4+len(argBytes))
	buf = append(buf,
		cmdType,
		byte(globalSize&0xFF),
		byte(localSize<<2)|byte((globalSize>>8)&0x03),
		opcode,
	)
	return append(buf, argBytes...), nil
}

// Args 参数序列构造器，生成格式串与对应值，字节仍由 Codec 产生
type Args struct {
	format []byte
	values []any
	err    error // 第一个非法参数，Encode 时返回
}

// NewArgs 创建空参数序列
func NewArgs() *Args { return &Args{} }

// Sub 子码（标记字节）
func (a *Args) Sub(code byte) *Args {
	a.format = append(a.format, FmtTag)
	a.values = append(a.values, code)
	return a
}

// LC 本地常量，按取值选择 LC0 / LC1 / LC2 最短编码
func (a *Args) LC(v int) *Args {
	switch {
	case v >= -32 && v <= 31:
		a.format = append(a.format, FmtTag)
		a.values = append(a.values, byte(v&0x3F))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		a.format = append(a.format, FmtTag, FmtByte)
		a.values = append(a.values, byte(paramLC1), int8(v))
	default:
		a.format = append(a.format, FmtTag, FmtShort)
		a.values = append(a.values, byte(paramLC2), v)
	}
	return a
}

// LC2 固定两字节本地常量
func (a *Args) LC2(v int) *Args {
	a.format = append(a.format, FmtTag, FmtShort)
	a.values = append(a.values, byte(paramLC2), v)
	return a
}

// GV 全局变量引用（GV0，索引 0..31）；越界索引使 Encode 返回 ErrIllegalArgument
func (a *Args) GV(index int) *Args {
	if index < 0 || index > maxGV0Index {
		if a.err == nil {
			a.err = fmt.Errorf("%w: global variable index %d out of 0..%d", ErrIllegalArgument, index, maxGV0Index)
		}
		return a
	}
	a.format = append(a.format, FmtTag)
	a.values = append(a.values, byte(paramGV0|index))
	return a
}

// Err 构造过程中遇到的第一个错误
func (a *Args) Err() error { return a.err }

// Format 返回格式串
func (a *Args) Format() string { return string(a.format) }

// Values 返回参数值
func (a *Args) Values() []any { return a.values }

// Encode 以当前参数序列调用 EncodeDirectCommand
func (a *Args) Encode(opcode byte, replyRequired bool, globalSize, localSize int) ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	return EncodeDirectCommand(opcode, replyRequired, globalSize, localSize, a.Format(), a.Values()...)
}

// Param 解码后的单个参数
type Param struct {
	Value    int  // 常量值，或变量索引
	Variable bool // 变量引用
	Global   bool // 全局变量
}

// DecodeParam 解码一个 LC0/LC1/LC2/GV0/LV0 参数，返回参数与消耗字节数
func DecodeParam(b []byte) (Param, int, error) {
	if len(b) == 0 {
		return Param{}, 0, fmt.Errorf("%w: empty parameter", ErrBufferLength)
	}
	p := b[0]
	switch {
	case p&0x80 == 0 && p&0x40 != 0:
		return Param{Value: int(p & 0x1F), Variable: true, Global: p&0x20 != 0}, 1, nil
	case p&0x80 == 0:
		v := int(p & 0x3F)
		if v&0x20 != 0 {
			v -= 0x40
		}
		return Param{Value: v}, 1, nil
	case p == paramLC1:
		if len(b) < 2 {
			return Param{}, 0, fmt.Errorf("%w: LC1", ErrBufferLength)
		}
		return Param{Value: int(int8(b[1]))}, 2, nil
	case p == paramLC2:
		if len(b) < 3 {
			return Param{}, 0, fmt.Errorf("%w: LC2", ErrBufferLength)
		}
		return Param{Value: int(int16(binary.LittleEndian.Uint16(b[1:3])))}, 3, nil
	}
	return Param{}, 0, fmt.Errorf("%w: parameter prefix 0x%02X", ErrUnknownFormat, p)
}
