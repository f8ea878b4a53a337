package link

import (
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// Conn 可关闭的主机链路
type Conn interface {
	ev3.Connection
	Close() error
}

// Open 按 link.type 打开链路
func Open(cfg cfgpkg.LinkConfig, log *zap.Logger) (Conn, error) {
	switch cfg.Type {
	case "serial":
		return OpenSerial(cfg, log)
	case "sim", "":
		log.Warn("using built-in brick simulator")
		return NewSim(), nil
	}
	return nil, fmt.Errorf("unknown link type %q", cfg.Type)
}
