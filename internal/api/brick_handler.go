package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/ev3-gateway/internal/brick"
	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
	"github.com/taoyao-code/ev3-gateway/internal/sensor"
)

// Brick 控制接口依赖的主机操作，由 brick.Brick 实现
type Brick interface {
	Status() brick.Status
	BatteryLevel(ctx context.Context) (int8, error)
	BatteryVoltage(ctx context.Context) (float32, error)
	SetPower(ctx context.Context, ports string, power int) error
	SetSpeed(ctx context.Context, ports string, speed int) error
	Stop(ctx context.Context, ports string, brake bool) error
	PlayTone(ctx context.Context, volume, freqHz, durationMs int) error
	StopSound(ctx context.Context) error
}

// BrickHandler 主机控制 API 处理器
type BrickHandler struct {
	brick   Brick
	sensors *sensor.Registry
	timeout time.Duration
	logger  *zap.Logger
}

// NewBrickHandler 创建处理器
func NewBrickHandler(b Brick, sensors *sensor.Registry, logger *zap.Logger) *BrickHandler {
	if sensors == nil {
		sensors = sensor.NewRegistry()
	}
	return &BrickHandler{brick: b, sensors: sensors, timeout: 3 * time.Second, logger: logger}
}

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int         `json:"code"`           // 0=成功, >0=错误码
	Message   string      `json:"message"`        // 消息
	Data      interface{} `json:"data,omitempty"` // 业务数据
	RequestID string      `json:"request_id"`     // 请求追踪ID
	Timestamp int64       `json:"timestamp"`      // 时间戳
}

// MotorRequest 电机功率/速度请求
type MotorRequest struct {
	Value *int `json:"value" binding:"required"` // -100..100
}

// StopRequest 停止请求
type StopRequest struct {
	Brake bool `json:"brake"` // true=刹车, false=滑行
}

// ToneRequest 音调请求
type ToneRequest struct {
	Volume     int `json:"volume" binding:"min=0,max=100"`
	Frequency  int `json:"frequency" binding:"required"`
	DurationMs int `json:"duration_ms" binding:"required"`
}

// SensorView 传感器视图
type SensorView struct {
	Port     string   `json:"port"`
	Kind     string   `json:"kind"`
	Unit     string   `json:"unit"`
	Polling  bool     `json:"polling"`
	Last     *float64 `json:"last,omitempty"`
	Watchers int      `json:"watchers"`
}

// GetBrick 主机状态
// @Router /api/brick [get]
func (h *BrickHandler) GetBrick(c *gin.Context) {
	h.ok(c, h.brick.Status())
}

// GetBattery 电量与电压
// @Router /api/brick/battery [get]
func (h *BrickHandler) GetBattery(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	level, err := h.brick.BatteryLevel(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	voltage, err := h.brick.BatteryVoltage(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"level_percent": level, "voltage": voltage})
}

// ListSensors 已配置的传感器
// @Router /api/sensors [get]
func (h *BrickHandler) ListSensors(c *gin.Context) {
	pollers := h.sensors.All()
	out := make([]SensorView, 0, len(pollers))
	for _, p := range pollers {
		out = append(out, view(p))
	}
	h.ok(c, out)
}

// ReadSensor 立即读取一次
// @Router /api/sensors/{port} [get]
func (h *BrickHandler) ReadSensor(c *gin.Context) {
	port := c.Param("port")
	if _, err := ev3.SensorPortLetterToNumber(port); err != nil {
		h.fail(c, err)
		return
	}
	p, ok := h.sensors.Get(port)
	if !ok {
		h.respond(c, http.StatusNotFound, int(ev3.CodeIllegalSensorPort), "no sensor configured on port "+port, nil)
		return
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	reading, err := p.Sensor().Read(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, reading)
}

// SetPower 设置功率并启动
// @Router /api/motors/{ports}/power [post]
func (h *BrickHandler) SetPower(c *gin.Context) {
	h.drive(c, h.brick.SetPower)
}

// SetSpeed 设置速度并启动
// @Router /api/motors/{ports}/speed [post]
func (h *BrickHandler) SetSpeed(c *gin.Context) {
	h.drive(c, h.brick.SetSpeed)
}

func (h *BrickHandler) drive(c *gin.Context, fn func(context.Context, string, int) error) {
	var req MotorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := fn(ctx, c.Param("ports"), *req.Value); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"ports": c.Param("ports"), "value": *req.Value})
}

// StopMotors 停止电机
// @Router /api/motors/{ports}/stop [post]
func (h *BrickHandler) StopMotors(c *gin.Context) {
	var req StopRequest
	// 空请求体按滑行处理
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.brick.Stop(ctx, c.Param("ports"), req.Brake); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"ports": c.Param("ports"), "brake": req.Brake})
}

// PlayTone 播放音调
// @Router /api/sound/tone [post]
func (h *BrickHandler) PlayTone(c *gin.Context) {
	var req ToneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.brick.PlayTone(ctx, req.Volume, req.Frequency, req.DurationMs); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, req)
}

// StopSound 停止声音
// @Router /api/sound/stop [post]
func (h *BrickHandler) StopSound(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.brick.StopSound(ctx); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, nil)
}

func (h *BrickHandler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func view(p *sensor.Poller) SensorView {
	s := p.Sensor()
	v := SensorView{
		Port:     s.Port(),
		Kind:     s.Spec().Kind,
		Unit:     s.Spec().Unit,
		Polling:  p.Running(),
		Watchers: p.Subscribers(),
	}
	if last, ok := p.Last(); ok {
		v.Last = &last
	}
	return v
}

// statusOf 参数错误 400，链路错误 503，协议/解码错误 502
func statusOf(err error) int {
	switch {
	case errors.Is(err, ev3.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ev3.ErrProtocol), errors.Is(err, ev3.ErrDecode):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

func (h *BrickHandler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status != http.StatusBadRequest {
		h.logger.Warn("brick request failed",
			zap.String("path", c.FullPath()),
			zap.String("class", ev3.ClassOf(err)),
			zap.Error(err))
	}
	h.respond(c, status, int(ev3.CodeOf(err)), err.Error(), nil)
}

func (h *BrickHandler) badRequest(c *gin.Context, err error) {
	h.respond(c, http.StatusBadRequest, int(ev3.CodeIllegalArgument), "invalid request: "+err.Error(), nil)
}

func (h *BrickHandler) ok(c *gin.Context, data interface{}) {
	h.respond(c, http.StatusOK, 0, "success", data)
}

func (h *BrickHandler) respond(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, StandardResponse{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now().Unix(),
	})
}
