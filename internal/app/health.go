package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/ev3-gateway/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器，初始只检查主机链路
func NewHealthAggregator(b health.BrickStatus) *health.Aggregator {
	return health.NewAggregator(health.NewLinkChecker(b))
}

// RegisterHealthRoutes 注册健康检查 HTTP 路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
