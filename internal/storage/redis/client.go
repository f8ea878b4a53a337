package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
)

// Client Redis 客户端封装，用于事件发布
type Client struct {
	*redis.Client
	channel string
}

// NewClient 创建 Redis 客户端并测试连接
func NewClient(cfg cfgpkg.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: rdb, channel: cfg.Channel}, nil
}

// Channel 事件发布频道
func (c *Client) Channel() string { return c.channel }

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Subscribers 事件频道当前订阅者数量（PUBSUB NUMSUB）
func (c *Client) Subscribers(ctx context.Context) (int64, error) {
	res, err := c.PubSubNumSub(ctx, c.channel).Result()
	if err != nil {
		return 0, err
	}
	return res[c.channel], nil
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.PoolStats()
}
