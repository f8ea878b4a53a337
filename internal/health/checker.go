package health

import (
	"context"
	"time"
)

// Status 组件健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"   // 正常
	StatusDegraded  Status = "degraded"  // 可服务，但链路可疑或事件发布失败
	StatusUnhealthy Status = "unhealthy" // 链路不可用
)

func (s Status) severity() int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	}
	return 0
}

// Worse 返回更严重的状态
func Worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// CheckResult 单个组件的检查结果
type CheckResult struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency"`
}

// Checker 组件检查：主机链路、事件 Redis
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
