package main

import (
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/ev3-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default: $EV3_CONFIG or configs/example.yaml)")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Fatal("ev3 gateway exited", zap.Error(err))
	}
}
