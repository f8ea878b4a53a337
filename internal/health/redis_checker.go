package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/ev3-gateway/internal/events"
)

// EventRedis 事件 Redis 的检查视图，由 storage/redis.Client 实现
type EventRedis interface {
	HealthCheck(ctx context.Context) error
	Channel() string
	Subscribers(ctx context.Context) (int64, error)
	Stats() *redis.PoolStats
}

// PublishStatsSource 事件发布计数，由 events.RedisPublisher 实现
type PublishStatsSource interface {
	Stats() events.PublishStats
}

// RedisChecker 边沿事件发布通道检查器
type RedisChecker struct {
	client EventRedis
	pub    PublishStatsSource
}

// NewRedisChecker 创建检查器；pub 可为 nil
func NewRedisChecker(client EventRedis, pub PublishStatsSource) *RedisChecker {
	return &RedisChecker{client: client, pub: pub}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

// Check Ping 失败为 Unhealthy；最近一次发布失败或连接池将满为 Degraded
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]any{"channel": c.client.Channel()}

	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Details: details,
			Latency: time.Since(start),
		}
	}

	status := StatusHealthy
	message := "ok"

	if n, err := c.client.Subscribers(ctx); err == nil {
		details["subscribers"] = n
	}

	pool := c.client.Stats()
	utilization := 0.0
	if pool.TotalConns > 0 {
		utilization = float64(pool.TotalConns-pool.IdleConns) / float64(pool.TotalConns)
	}
	details["total_conns"] = pool.TotalConns
	details["idle_conns"] = pool.IdleConns
	details["timeouts"] = pool.Timeouts
	details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)
	if utilization > 0.9 {
		status = Worse(status, StatusDegraded)
		message = "connection pool near limit"
	}

	if c.pub != nil {
		st := c.pub.Stats()
		details["published"] = st.Published
		details["publish_failed"] = st.Failed
		details["last_receivers"] = st.LastReceivers
		if st.LastFailed {
			status = Worse(status, StatusDegraded)
			message = "last event publish failed: " + st.LastError
		}
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}
