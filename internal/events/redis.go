package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// PublishStats Redis 发布计数
type PublishStats struct {
	Channel       string `json:"channel"`
	Published     uint64 `json:"published"`
	Failed        uint64 `json:"failed"`
	LastFailed    bool   `json:"lastFailed"`
	LastError     string `json:"lastError,omitempty"`
	LastReceivers int64  `json:"lastReceivers"`
}

// RedisPublisher 以 JSON 发布到 Redis 频道
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string

	mu        sync.Mutex
	published uint64
	failed    uint64
	receivers int64
	lastErr   error
}

// NewRedisPublisher 创建 Redis 发布器
func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = "ev3:events"
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Channel 发布频道
func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	n, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	p.record(n, err)
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) record(receivers int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	if err != nil {
		p.failed++
		return
	}
	p.published++
	p.receivers = receivers
}

// Stats 发布计数快照
func (p *RedisPublisher) Stats() PublishStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PublishStats{
		Channel:       p.channel,
		Published:     p.published,
		Failed:        p.failed,
		LastFailed:    p.lastErr != nil,
		LastReceivers: p.receivers,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	return st
}
