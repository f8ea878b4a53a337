// Package brick 在命令通道之上提供主机操作：传感器读取、电机、电量与声音。
// 每次交换依次经过链路检查、链路保护、限流，然后才进入 ev3.Channel。
package brick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/metrics"
	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// ErrorSink 错误上报
type ErrorSink interface {
	ReportError(component, operation string, code ev3.ErrorCode, args ...any)
}

type nopSink struct{}

func (nopSink) ReportError(string, string, ev3.ErrorCode, ...any) {}

// Brick 一台 EV3 主机
type Brick struct {
	mu     sync.RWMutex
	conn   ev3.Connection
	ch     *ev3.Channel
	chOpts []ev3.Option

	guard   *LinkGuard
	limiter *RateLimiter
	metrics *metrics.AppMetrics
	sink    ErrorSink
	log     *zap.Logger

	onAttach []func()
}

// Option Brick 选项
type Option func(*Brick)

// WithMetrics 记录交换指标
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(b *Brick) { b.metrics = m }
}

// WithErrorSink 设置错误上报
func WithErrorSink(s ErrorSink) Option {
	return func(b *Brick) {
		if s != nil {
			b.sink = s
		}
	}
}

// New 创建未挂载链路的 Brick
func New(cfg cfgpkg.BrickConfig, log *zap.Logger, opts ...Option) *Brick {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Brick{
		guard:   NewLinkGuard(cfg.GuardThreshold, cfg.GuardCooldown),
		limiter: NewRateLimiter(cfg.CommandRate, cfg.CommandBurst),
		sink:    nopSink{},
		log:     log,
	}
	if cfg.StrictSequence {
		b.chOpts = append(b.chOpts, ev3.WithSequenceCheck())
	}
	for _, opt := range opts {
		opt(b)
	}
	b.guard.SetStateChangeCallback(func(from, to GuardState) {
		b.log.Warn("link guard state changed",
			zap.String("from", from.String()), zap.String("to", to.String()))
	})
	return b
}

// Attach 挂载链路；新通道的序号从 0 开始
func (b *Brick) Attach(conn ev3.Connection) {
	b.mu.Lock()
	b.conn = conn
	b.ch = ev3.NewChannel(conn, b.chOpts...)
	hooks := append([]func(){}, b.onAttach...)
	b.mu.Unlock()
	b.guard.Reset()
	b.setLinkGauge()
	b.log.Info("link attached")
	for _, fn := range hooks {
		fn()
	}
}

// OnAttach 注册链路挂载后的回调，例如丢弃传感器基线
func (b *Brick) OnAttach(fn func()) {
	b.mu.Lock()
	b.onAttach = append(b.onAttach, fn)
	b.mu.Unlock()
}

// Detach 卸载链路并返回原链路，由调用方负责关闭
func (b *Brick) Detach() ev3.Connection {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.ch = nil
	b.mu.Unlock()
	b.setLinkGauge()
	if conn != nil {
		b.log.Info("link detached")
	}
	return conn
}

// Connected 链路已挂载且可用
func (b *Brick) Connected() bool {
	ch := b.channel()
	return ch != nil && ch.Connected()
}

// Guard 链路保护
func (b *Brick) Guard() *LinkGuard { return b.guard }

// Status 主机状态快照
type Status struct {
	Attached     bool             `json:"attached"`
	Connected    bool             `json:"connected"`
	ChannelState string           `json:"channel_state"`
	Guard        GuardStats       `json:"guard"`
	Limiter      RateLimiterStats `json:"limiter"`
}

// Status 返回状态快照
func (b *Brick) Status() Status {
	ch := b.channel()
	st := Status{
		Attached: ch != nil,
		Guard:    b.guard.Stats(),
		Limiter:  b.limiter.Stats(),
	}
	if ch != nil {
		st.Connected = ch.Connected()
		st.ChannelState = ch.State().String()
	}
	return st
}

func (b *Brick) channel() *ev3.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ch
}

func (b *Brick) setLinkGauge() {
	if b.metrics == nil {
		return
	}
	if b.Connected() {
		b.metrics.LinkConnected.Set(1)
	} else {
		b.metrics.LinkConnected.Set(0)
	}
}

// exchange 发送一条已编码的命令
func (b *Brick) exchange(ctx context.Context, cmd []byte, reply bool) (*ev3.ReplyFrame, error) {
	ch := b.channel()
	if ch == nil {
		return nil, ev3.ErrNoLink
	}
	if !ch.Connected() {
		b.setLinkGauge()
		return nil, ev3.ErrNotConnected
	}
	if err := b.guard.Allow(); err != nil {
		return nil, err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limit: %w", ev3.ErrLink, err)
		b.guard.Record(err)
		return nil, err
	}

	start := time.Now()
	frame, err := ch.Send(ctx, cmd, reply)
	b.guard.Record(err)

	if b.metrics != nil {
		b.metrics.CommandsTotal.WithLabelValues(fmt.Sprint(reply)).Inc()
		b.metrics.RepliesTotal.WithLabelValues(ev3.ClassOf(err)).Inc()
		b.metrics.ExchangeDuration.Observe(time.Since(start).Seconds())
		switch ev3.ClassOf(err) {
		case "protocol", "decode":
			b.metrics.ProtocolErrors.WithLabelValues(violationKind(err)).Inc()
		case "link":
			b.setLinkGauge()
		}
	}
	return frame, err
}

// decodeFailed 回复格式不符也计入链路保护
func (b *Brick) decodeFailed(err error) error {
	b.guard.Record(err)
	if b.metrics != nil {
		b.metrics.ProtocolErrors.WithLabelValues(violationKind(err)).Inc()
	}
	return err
}

func violationKind(err error) string {
	switch {
	case errors.Is(err, ev3.ErrShortHeader):
		return "short_header"
	case errors.Is(err, ev3.ErrShortPayload):
		return "short_payload"
	case errors.Is(err, ev3.ErrBadReplyTag):
		return "bad_reply_tag"
	case errors.Is(err, ev3.ErrSequence):
		return "sequence"
	case errors.Is(err, ev3.ErrBufferLength), errors.Is(err, ev3.ErrInvalidReply):
		return "invalid_reply"
	}
	return "other"
}

// fail 上报并返回错误
func (b *Brick) fail(component, operation string, err error, args ...any) error {
	b.sink.ReportError(component, operation, ev3.CodeOf(err), args...)
	b.log.Debug("brick operation failed",
		zap.String("component", component),
		zap.String("operation", operation),
		zap.Error(err))
	return err
}

// ReadPercentage 读取传感器百分比值（opINPUT_DEVICE READY_PCT）
func (b *Brick) ReadPercentage(ctx context.Context, port string, typ, mode byte) (int8, error) {
	const op = "ReadPercentage"
	n, err := ev3.SensorPortLetterToNumber(port)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	cmd, err := ev3.NewArgs().Sub(ev3.InputReadyPct).
		LC(ev3.LayerMaster).LC(int(n)).LC(int(typ)).LC(int(mode)).LC(1).GV(0).
		Encode(ev3.OpInputDevice, true, 1, 0)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	reply, err := b.exchange(ctx, cmd, true)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	v, err := ev3.DecodePercentage(reply)
	if err != nil {
		return 0, b.fail("Sensor", op, b.decodeFailed(err), port)
	}
	return v, nil
}

// ReadSI 读取传感器 SI 单位值（opINPUT_DEVICE READY_SI）
func (b *Brick) ReadSI(ctx context.Context, port string, typ, mode byte) (float32, error) {
	const op = "ReadSI"
	n, err := ev3.SensorPortLetterToNumber(port)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	cmd, err := ev3.NewArgs().Sub(ev3.InputReadySI).
		LC(ev3.LayerMaster).LC(int(n)).LC(int(typ)).LC(int(mode)).LC(1).GV(0).
		Encode(ev3.OpInputDevice, true, 4, 0)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	reply, err := b.exchange(ctx, cmd, true)
	if err != nil {
		return 0, b.fail("Sensor", op, err, port)
	}
	v, err := ev3.DecodeSI(reply)
	if err != nil {
		return 0, b.fail("Sensor", op, b.decodeFailed(err), port)
	}
	return v, nil
}

// PercentageOrSentinel 兼容旧调用方：失败时返回 -1。
// -1 仅表示失败，不是读数；新代码应使用 ReadPercentage。
func (b *Brick) PercentageOrSentinel(ctx context.Context, port string, typ, mode byte) int {
	v, err := b.ReadPercentage(ctx, port, typ, mode)
	if err != nil {
		return -1
	}
	return int(v)
}

// SIOrSentinel 兼容旧调用方：失败时返回 -1.0。
// 角速度等读数本身可能为 -1，调用方无法据此区分失败；新代码应使用 ReadSI。
func (b *Brick) SIOrSentinel(ctx context.Context, port string, typ, mode byte) float64 {
	v, err := b.ReadSI(ctx, port, typ, mode)
	if err != nil {
		return -1.0
	}
	return float64(v)
}

// BatteryLevel 电量百分比（opUI_READ GET_LBATT）
func (b *Brick) BatteryLevel(ctx context.Context) (int8, error) {
	cmd, err := ev3.NewArgs().Sub(ev3.UIReadGetLBatt).GV(0).Encode(ev3.OpUIRead, true, 1, 0)
	if err != nil {
		return 0, b.fail("Brick", "BatteryLevel", err)
	}
	reply, err := b.exchange(ctx, cmd, true)
	if err != nil {
		return 0, b.fail("Brick", "BatteryLevel", err)
	}
	v, err := ev3.DecodePercentage(reply)
	if err != nil {
		return 0, b.fail("Brick", "BatteryLevel", b.decodeFailed(err))
	}
	return v, nil
}

// BatteryVoltage 电池电压，单位 V（opUI_READ GET_VBATT）
func (b *Brick) BatteryVoltage(ctx context.Context) (float32, error) {
	cmd, err := ev3.NewArgs().Sub(ev3.UIReadGetVBatt).GV(0).Encode(ev3.OpUIRead, true, 4, 0)
	if err != nil {
		return 0, b.fail("Brick", "BatteryVoltage", err)
	}
	reply, err := b.exchange(ctx, cmd, true)
	if err != nil {
		return 0, b.fail("Brick", "BatteryVoltage", err)
	}
	v, err := ev3.DecodeSI(reply)
	if err != nil {
		return 0, b.fail("Brick", "BatteryVoltage", b.decodeFailed(err))
	}
	return v, nil
}

// SetPower 设置功率并启动电机，power 取值 -100..100
func (b *Brick) SetPower(ctx context.Context, ports string, power int) error {
	return b.drive(ctx, "SetPower", ev3.OpOutputPower, ports, power)
}

// SetSpeed 设置速度并启动电机，speed 取值 -100..100
func (b *Brick) SetSpeed(ctx context.Context, ports string, speed int) error {
	return b.drive(ctx, "SetSpeed", ev3.OpOutputSpeed, ports, speed)
}

func (b *Brick) drive(ctx context.Context, op string, opcode byte, ports string, value int) error {
	bits, err := motorBits(ports)
	if err != nil {
		return b.fail("Motor", op, err, ports, value)
	}
	if value < -100 || value > 100 {
		return b.fail("Motor", op, fmt.Errorf("%w: %s %d not in -100..100", ev3.ErrIllegalArgument, op, value), ports, value)
	}
	set, err := ev3.NewArgs().LC(ev3.LayerMaster).LC(int(bits)).LC(value).Encode(opcode, false, 0, 0)
	if err != nil {
		return b.fail("Motor", op, err, ports, value)
	}
	start, err := ev3.NewArgs().LC(ev3.LayerMaster).LC(int(bits)).Encode(ev3.OpOutputStart, false, 0, 0)
	if err != nil {
		return b.fail("Motor", op, err, ports, value)
	}
	if _, err := b.exchange(ctx, set, false); err != nil {
		return b.fail("Motor", op, err, ports, value)
	}
	if _, err := b.exchange(ctx, start, false); err != nil {
		return b.fail("Motor", op, err, ports, value)
	}
	return nil
}

// Stop 停止电机；brake 为 true 时刹车，否则滑行
func (b *Brick) Stop(ctx context.Context, ports string, brake bool) error {
	bits, err := motorBits(ports)
	if err != nil {
		return b.fail("Motor", "Stop", err, ports)
	}
	brakeArg := 0
	if brake {
		brakeArg = 1
	}
	cmd, err := ev3.NewArgs().LC(ev3.LayerMaster).LC(int(bits)).LC(brakeArg).Encode(ev3.OpOutputStop, false, 0, 0)
	if err != nil {
		return b.fail("Motor", "Stop", err, ports)
	}
	if _, err := b.exchange(ctx, cmd, false); err != nil {
		return b.fail("Motor", "Stop", err, ports)
	}
	return nil
}

// motorBits 解析电机端口字母，空串不合法
func motorBits(ports string) (byte, error) {
	bits, err := ev3.MotorPortLettersToBitfield(ports)
	if err != nil {
		return 0, err
	}
	if bits == 0 {
		return 0, fmt.Errorf("%w: no motor port given", ev3.ErrMalformedPortLetters)
	}
	return bits, nil
}

// PlayTone 播放音调（opSOUND TONE）
// volume 0..100，freqHz 250..10000，durationMs 0..32767
func (b *Brick) PlayTone(ctx context.Context, volume, freqHz, durationMs int) error {
	args := []any{volume, freqHz, durationMs}
	switch {
	case volume < 0 || volume > 100:
		return b.fail("Sound", "PlayTone", fmt.Errorf("%w: volume %d", ev3.ErrIllegalArgument, volume), args...)
	case freqHz < 250 || freqHz > 10000:
		return b.fail("Sound", "PlayTone", fmt.Errorf("%w: frequency %d", ev3.ErrIllegalArgument, freqHz), args...)
	case durationMs < 0 || durationMs > 32767:
		return b.fail("Sound", "PlayTone", fmt.Errorf("%w: duration %d", ev3.ErrIllegalArgument, durationMs), args...)
	}
	cmd, err := ev3.NewArgs().Sub(ev3.SoundTone).LC(volume).LC2(freqHz).LC2(durationMs).Encode(ev3.OpSound, false, 0, 0)
	if err != nil {
		return b.fail("Sound", "PlayTone", err, args...)
	}
	if _, err := b.exchange(ctx, cmd, false); err != nil {
		return b.fail("Sound", "PlayTone", err, args...)
	}
	return nil
}

// StopSound 停止当前声音（opSOUND BREAK）
func (b *Brick) StopSound(ctx context.Context) error {
	cmd, err := ev3.NewArgs().Sub(ev3.SoundBreak).Encode(ev3.OpSound, false, 0, 0)
	if err != nil {
		return b.fail("Sound", "StopSound", err)
	}
	if _, err := b.exchange(ctx, cmd, false); err != nil {
		return b.fail("Sound", "StopSound", err)
	}
	return nil
}
