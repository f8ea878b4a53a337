package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/events"
	"github.com/taoyao-code/ev3-gateway/internal/metrics"
	"github.com/taoyao-code/ev3-gateway/internal/sensor"
)

// BuildSensors 按配置创建传感器与轮询器；watch=true 的传感器立即订阅并发布边沿事件
func BuildSensors(
	cfgs []cfgpkg.SensorConfig,
	interval time.Duration,
	reader sensor.Reader,
	pub events.Publisher,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) (*sensor.Registry, error) {
	reg := sensor.NewRegistry()
	for _, sc := range cfgs {
		spec, err := sensor.Lookup(sc.Kind)
		if err != nil {
			reg.CloseAll()
			return nil, fmt.Errorf("sensor on port %s: %w", sc.Port, err)
		}
		s, err := sensor.New(reader, sc.Port, spec)
		if err != nil {
			reg.CloseAll()
			return nil, fmt.Errorf("sensor %s: %w", sc.Kind, err)
		}
		rule, err := spec.NewRule(sensor.RuleParams{
			Threshold: sc.Threshold,
			Delta:     sc.Delta,
			Bottom:    sc.Bottom,
			Top:       sc.Top,
		})
		if err != nil {
			reg.CloseAll()
			return nil, fmt.Errorf("sensor on port %s: %w", sc.Port, err)
		}
		p := sensor.NewPoller(s, rule,
			sensor.WithInterval(interval),
			sensor.WithLogger(logger),
			sensor.WithPollMetrics(appm))
		if err := reg.Add(p); err != nil {
			reg.CloseAll()
			return nil, err
		}
		if sc.Watch {
			if _, err := p.Subscribe(publishEdges(pub, logger)); err != nil {
				reg.CloseAll()
				return nil, err
			}
		}
		logger.Info("sensor configured",
			zap.String("port", sc.Port),
			zap.String("kind", spec.Kind),
			zap.Bool("watch", sc.Watch))
	}
	return reg, nil
}

// publishEdges 将边沿事件转为标准事件发布
func publishEdges(pub events.Publisher, logger *zap.Logger) sensor.Handler {
	return func(e sensor.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ev := events.New(string(e.Kind), e.Sensor, e.Port, e.Value, e.Previous, e.At)
		if err := pub.Publish(ctx, ev); err != nil {
			logger.Warn("publish sensor event failed",
				zap.String("event_id", ev.EventID),
				zap.Error(err))
		}
	}
}
