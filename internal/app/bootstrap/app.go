package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/ev3-gateway/internal/api"
	"github.com/taoyao-code/ev3-gateway/internal/api/middleware"
	"github.com/taoyao-code/ev3-gateway/internal/app"
	"github.com/taoyao-code/ev3-gateway/internal/brick"
	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/health"
	"github.com/taoyao-code/ev3-gateway/internal/link"
	"github.com/taoyao-code/ev3-gateway/internal/logging"
	"github.com/taoyao-code/ev3-gateway/internal/metrics"
)

// Run 统一启动流程：链路就绪后再启动轮询与 HTTP，关闭时先停轮询再断链路
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting ev3 gateway", zap.String("name", cfg.App.Name), zap.String("env", cfg.App.Env))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)
	ready := health.New()
	sink := logging.NewErrorSink(log)

	b := brick.New(cfg.Brick, log.With(zap.String("component", "brick")),
		brick.WithMetrics(appm),
		brick.WithErrorSink(sink))

	// ========== 阶段2: 打开链路（失败直接返回）==========
	conn, err := link.Open(cfg.Link, log)
	if err != nil {
		log.Error("link open failed", zap.String("type", cfg.Link.Type), zap.Error(err))
		return err
	}
	b.Attach(conn)
	ready.SetLinkReady(true)
	log.Info("link ready", zap.String("type", cfg.Link.Type), zap.String("device", cfg.Link.Device))

	probeBattery(b, log)

	// ========== 阶段3: Redis 与事件发布 ==========
	redisClient, err := app.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		b.Detach()
		_ = conn.Close()
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	pub, redisPub := app.NewEventPublisher(redisClient, log)

	// ========== 阶段4: 传感器轮询 ==========
	sensors, err := app.BuildSensors(cfg.Sensors, cfg.Polling.Interval, b, pub, appm, log.With(zap.String("component", "sensor")))
	if err != nil {
		log.Error("sensor setup failed", zap.Error(err))
		b.Detach()
		_ = conn.Close()
		return err
	}
	// 重新挂载链路后各传感器重新取基线
	b.OnAttach(sensors.ResetAll)
	ready.SetPollersReady(true)

	// ========== 阶段5: HTTP 服务 ==========
	healthAgg := app.NewHealthAggregator(b)
	app.AddRedisChecker(healthAgg, redisClient, redisPub)

	httpSrv := app.NewHTTPServer(cfg.HTTP, log.With(zap.String("component", "http")), cfg.Metrics.Path, metricsHandler, ready.Ready)
	authCfg := middleware.AuthConfig{
		APIKeys: cfg.API.APIKeys,
		Enabled: cfg.API.AuthEnabled,
	}
	api.RegisterBrickRoutes(httpSrv.Engine(), api.NewBrickHandler(b, sensors, log), authCfg, log)
	app.RegisterHealthRoutes(httpSrv.Engine(), healthAgg)

	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("all services ready", zap.Int("sensors", len(sensors.All())))

	// ========== 阶段6: 等待关闭信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctx)
	log.Info("http server stopped")

	// 轮询先于链路关闭，避免关闭后仍有读取
	sensors.CloseAll()
	ready.SetPollersReady(false)
	log.Info("sensor pollers stopped")

	b.Detach()
	if err := conn.Close(); err != nil {
		log.Warn("link close failed", zap.Error(err))
	}
	ready.SetLinkReady(false)

	log.Info("shutdown complete")
	return nil
}

// probeBattery 启动时读取一次电量，失败不影响启动
func probeBattery(b *brick.Brick, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	level, err := b.BatteryLevel(ctx)
	if err != nil {
		log.Warn("battery probe failed", zap.Error(err))
		return
	}
	log.Info("brick battery", zap.Int8("level_percent", level))
}
