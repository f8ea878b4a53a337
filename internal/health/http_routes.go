package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册健康检查HTTP路由
func RegisterHTTPRoutes(r *gin.Engine, aggregator *Aggregator) {
	// 1. Readiness 探针
	// GET /health/ready
	r.GET("/health/ready", func(c *gin.Context) {
		ctx := c.Request.Context()

		if !aggregator.Ready(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"ready":  false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"ready":  true,
		})
	})

	// 2. Liveness 探针
	// GET /health/live
	r.GET("/health/live", func(c *gin.Context) {
		if !aggregator.Alive() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"alive": false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"alive": true,
		})
	})

	// 3. 详细健康检查
	// GET /health
	r.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		report := aggregator.Report(ctx)

		// Degraded 仍返回 200
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})
}
