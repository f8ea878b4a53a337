package health

import (
	"context"
	"time"

	"github.com/taoyao-code/ev3-gateway/internal/brick"
)

// BrickStatus 提供主机链路状态
type BrickStatus interface {
	Status() brick.Status
}

// LinkChecker 主机链路健康检查器
type LinkChecker struct {
	brick BrickStatus
}

// NewLinkChecker 创建链路检查器
func NewLinkChecker(b BrickStatus) *LinkChecker {
	return &LinkChecker{brick: b}
}

// Name 返回检查器名称
func (c *LinkChecker) Name() string {
	return "link"
}

// Check 未挂载或断开为 Unhealthy；链路保护打开为 Degraded
func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.brick.Status()

	details := map[string]any{
		"attached":        st.Attached,
		"connected":       st.Connected,
		"channel_state":   st.ChannelState,
		"guard_state":     st.Guard.State,
		"guard_trips":     st.Guard.TripCount,
		"commands_total":  st.Limiter.AllowedTotal,
		"rate_per_second": st.Limiter.RatePerSecond,
	}

	status := StatusHealthy
	message := "ok"
	switch {
	case !st.Attached:
		status = StatusUnhealthy
		message = "link not attached"
	case !st.Connected:
		status = StatusUnhealthy
		message = "link not connected"
	case st.Guard.State != brick.GuardClosed.String():
		status = StatusDegraded
		message = "link suspect after protocol violations"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
