package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/events"
	"github.com/taoyao-code/ev3-gateway/internal/health"
	redisstorage "github.com/taoyao-code/ev3-gateway/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未启用时返回 nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize),
		zap.String("channel", client.Channel()))

	return client, nil
}

// NewEventPublisher 事件总是写日志；Redis 可用时同时发布到频道，并返回 Redis 发布器供健康检查使用
func NewEventPublisher(redisClient *redisstorage.Client, logger *zap.Logger) (events.Publisher, *events.RedisPublisher) {
	logPub := events.NewLogPublisher(logger.With(zap.String("component", "events")))
	if redisClient == nil {
		return logPub, nil
	}
	redisPub := events.NewRedisPublisher(redisClient.Client, redisClient.Channel())
	return events.Multi{logPub, redisPub}, redisPub
}

// AddRedisChecker 添加事件 Redis 检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client, redisPub *events.RedisPublisher) {
	if redisClient == nil {
		return
	}
	if redisPub == nil {
		aggregator.AddChecker(health.NewRedisChecker(redisClient, nil))
		return
	}
	aggregator.AddChecker(health.NewRedisChecker(redisClient, redisPub))
}
