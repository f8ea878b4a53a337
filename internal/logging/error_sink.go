package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// 同一级别同一消息每秒前 sampleFirst 条全量输出，之后每 sampleThereafter 条输出一条
const (
	sampleTick       = time.Second
	sampleFirst      = 5
	sampleThereafter = 100
)

// ErrorSink 将引擎错误写为结构化日志。
// 轮询失败可达每秒数十次，日志经采样输出。
type ErrorSink struct {
	log *zap.Logger
}

// NewErrorSink 创建 ErrorSink
func NewErrorSink(log *zap.Logger) *ErrorSink {
	if log == nil {
		log = zap.NewNop()
	}
	sampled := log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(c, sampleTick, sampleFirst, sampleThereafter)
	}))
	return &ErrorSink{log: sampled.With(zap.String("component", "error_sink"))}
}

// ReportError 上报错误；参数校验错误记 warn，链路可疑时的拒绝记 debug，其余记 error
func (s *ErrorSink) ReportError(component, operation string, code ev3.ErrorCode, args ...any) {
	fields := []zap.Field{
		zap.String("source", component),
		zap.String("operation", operation),
		zap.Int("code", int(code)),
	}
	if len(args) > 0 {
		fields = append(fields, zap.Any("args", args))
	}
	switch code {
	case ev3.CodeIllegalArgument, ev3.CodeIllegalSensorPort, ev3.CodeIllegalMotorPort:
		s.log.Warn("ev3 request rejected", fields...)
	case ev3.CodeLinkSuspect:
		// 状态切换已由链路保护记 warn
		s.log.Debug("ev3 request blocked by link guard", fields...)
	default:
		s.log.Error("ev3 request failed", fields...)
	}
}
