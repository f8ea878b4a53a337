// Package events 发布传感器边沿事件：日志、Redis 频道或二者同时。
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType 事件类型
type EventType string

// Event 标准事件结构
type Event struct {
	EventID   string    `json:"event_id"`   // 事件唯一ID（用于去重）
	EventType EventType `json:"event_type"` // sensor.<kind>
	Sensor    string    `json:"sensor"`     // 传感器类型名
	Port      string    `json:"port"`       // "1".."4"
	Value     float64   `json:"value"`
	Previous  float64   `json:"previous"`
	Timestamp int64     `json:"timestamp"` // Unix 毫秒
}

// New 创建事件
func New(kind, sensor, port string, value, previous float64, at time.Time) Event {
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		EventID:   uuid.NewString(),
		EventType: EventType("sensor." + kind),
		Sensor:    sensor,
		Port:      port,
		Value:     value,
		Previous:  previous,
		Timestamp: at.UnixMilli(),
	}
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher 以结构化日志输出事件
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher 创建日志发布器
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info("sensor event",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", string(ev.EventType)),
		zap.String("sensor", ev.Sensor),
		zap.String("port", ev.Port),
		zap.Float64("value", ev.Value),
		zap.Float64("previous", ev.Previous))
	return nil
}

// Multi 依次发布到全部发布器，错误合并返回
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
