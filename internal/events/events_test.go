package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	ev := New("pressed", "touch", "1", 70, 30, at)

	_, err := uuid.Parse(ev.EventID)
	require.NoError(t, err)
	assert.Equal(t, EventType("sensor.pressed"), ev.EventType)
	assert.Equal(t, int64(1700000000123), ev.Timestamp)
	assert.NotEqual(t, ev.EventID, New("pressed", "touch", "1", 70, 30, at).EventID)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), New("released", "touch", "2", 10, 80, time.Time{})))
	entries := logs.FilterMessage("sensor event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sensor.released", entries[0].ContextMap()["event_type"])
	assert.Equal(t, "2", entries[0].ContextMap()["port"])
}

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }

type counting struct{ n int }

func (c *counting) Publish(context.Context, Event) error { c.n++; return nil }

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	c := &counting{}
	m := Multi{failing{boom}, c}

	err := m.Publish(context.Background(), New("value_changed", "gyro-rate", "2", 5, 0, time.Now()))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.n)

	assert.NoError(t, Multi{c}.Publish(context.Background(), Event{}))
}

func TestRedisPublisher_CountsFailures(t *testing.T) {
	// 不可达地址，发布必然失败
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	p := NewRedisPublisher(rdb, "")
	err := p.Publish(context.Background(), New("pressed", "touch", "1", 70, 30, time.Now()))
	require.Error(t, err)

	st := p.Stats()
	assert.Equal(t, "ev3:events", st.Channel)
	assert.Equal(t, uint64(0), st.Published)
	assert.Equal(t, uint64(1), st.Failed)
	assert.True(t, st.LastFailed)
	assert.NotEmpty(t, st.LastError)
}

// 需要本地 Redis，通过 EV3_TEST_REDIS 指定地址
func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("EV3_TEST_REDIS")
	if addr == "" {
		t.Skip("EV3_TEST_REDIS not set, skipping redis test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	p := NewRedisPublisher(rdb, "ev3:test:events")
	sub := rdb.Subscribe(ctx, p.Channel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	ev := New("pressed", "touch", "1", 70, 30, time.Now())
	require.NoError(t, p.Publish(ctx, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Stats().Published)
	assert.False(t, p.Stats().LastFailed)
	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, ev, got)
}
