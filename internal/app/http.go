package app

import (
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg cfgpkg.HTTPConfig, log *zap.Logger, metricsPath string, metricsHandler http.Handler, readyFn func() bool) *httpserver.Server {
	return httpserver.New(cfg, log, metricsPath, metricsHandler, readyFn)
}
