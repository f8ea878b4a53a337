package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/ev3-gateway/internal/api/middleware"
)

// RegisterBrickRoutes 注册主机控制路由；查询接口免认证，控制接口按配置认证
func RegisterBrickRoutes(r *gin.Engine, h *BrickHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}

	api := r.Group("/api")
	api.Use(middleware.RequestTracing())

	api.GET("/brick", h.GetBrick)
	api.GET("/brick/battery", h.GetBattery)
	api.GET("/sensors", h.ListSensors)
	api.GET("/sensors/:port", h.ReadSensor)

	ctl := api.Group("")
	if authCfg.Enabled {
		ctl.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}
	ctl.POST("/motors/:ports/power", h.SetPower)
	ctl.POST("/motors/:ports/speed", h.SetSpeed)
	ctl.POST("/motors/:ports/stop", h.StopMotors)
	ctl.POST("/sound/tone", h.PlayTone)
	ctl.POST("/sound/stop", h.StopSound)

	logger.Info("brick routes registered", zap.Int("endpoints", 9))
}
