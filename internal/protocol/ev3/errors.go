package ev3

import "errors"

// 错误分类：链路 / 参数校验 / 协议违例 / 解码
var (
	ErrLink       = errors.New("ev3 link error")
	ErrValidation = errors.New("ev3 validation error")
	ErrProtocol   = errors.New("ev3 protocol violation")
	ErrDecode     = errors.New("ev3 decode error")
)

// classError 具体错误，Unwrap 返回所属分类
type classError struct {
	class error
	msg   string
	code  ErrorCode
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func newError(class error, code ErrorCode, msg string) error {
	return &classError{class: class, msg: msg, code: code}
}

// 链路错误：未发送任何字节
var (
	ErrNoLink       = newError(ErrLink, CodeNoLink, "link not attached")
	ErrNotConnected = newError(ErrLink, CodeNotConnected, "link not connected")
	ErrLinkSuspect  = newError(ErrLink, CodeLinkSuspect, "link suspect after protocol violations")
)

// 参数校验错误：在发送前拦截
var (
	ErrInvalidSensorPort    = newError(ErrValidation, CodeIllegalSensorPort, "invalid sensor port")
	ErrInvalidPortNumber    = newError(ErrValidation, CodeIllegalSensorPort, "invalid sensor port number")
	ErrMalformedPortLetters = newError(ErrValidation, CodeIllegalMotorPort, "malformed motor port letters")
	ErrInvalidBitfield      = newError(ErrValidation, CodeIllegalMotorPort, "invalid motor port bitfield")
	ErrFormatArity          = newError(ErrValidation, CodeIllegalArgument, "format arity mismatch")
	ErrUnknownFormat        = newError(ErrValidation, CodeIllegalArgument, "unknown format character")
	ErrValueRange           = newError(ErrValidation, CodeIllegalArgument, "value out of range for format")
	ErrBufferSize           = newError(ErrValidation, CodeIllegalArgument, "buffer size out of range")
	ErrIllegalArgument      = newError(ErrValidation, CodeIllegalArgument, "illegal argument")
)

// 协议违例：已有字节交换，链路应视为可疑
var (
	ErrShortHeader  = newError(ErrProtocol, CodeInvalidReply, "short header")
	ErrShortPayload = newError(ErrProtocol, CodeInvalidReply, "short payload")
	ErrBadReplyTag  = newError(ErrProtocol, CodeInvalidReply, "bad reply tag")
	ErrSequence     = newError(ErrProtocol, CodeInvalidReply, "reply sequence mismatch")
)

// 解码错误
var (
	ErrBufferLength = newError(ErrDecode, CodeInvalidReply, "truncated or oversized buffer")
	ErrInvalidReply = newError(ErrDecode, CodeInvalidReply, "invalid reply")
)

// ErrorCode 上报给 ErrorSink 的错误码
type ErrorCode int

const (
	CodeNone              ErrorCode = 0
	CodeNoLink            ErrorCode = 3000
	CodeNotConnected      ErrorCode = 3001
	CodeInvalidReply      ErrorCode = 3002
	CodeIllegalArgument   ErrorCode = 3003
	CodeIllegalSensorPort ErrorCode = 3004
	CodeIllegalMotorPort  ErrorCode = 3005
	CodeLinkSuspect       ErrorCode = 3006
	CodeLinkIO            ErrorCode = 3007
)

// CodeOf 返回错误对应的错误码；未分类的错误按链路 I/O 处理
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNone
	}
	var ce *classError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch {
	case errors.Is(err, ErrLink):
		return CodeLinkIO
	case errors.Is(err, ErrValidation):
		return CodeIllegalArgument
	case errors.Is(err, ErrProtocol), errors.Is(err, ErrDecode):
		return CodeInvalidReply
	}
	return CodeLinkIO
}

// ClassOf 返回错误所属分类名，用于指标标签
func ClassOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "link"
	}
}
