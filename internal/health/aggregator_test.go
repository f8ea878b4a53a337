package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/ev3-gateway/internal/brick"
	"github.com/taoyao-code/ev3-gateway/internal/events"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: "mock", Latency: time.Millisecond}
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"link", StatusHealthy}, &mockChecker{"redis", StatusHealthy})
		assert.Equal(t, StatusHealthy, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("部分降级仍就绪", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"link", StatusDegraded}, &mockChecker{"redis", StatusHealthy})
		assert.Equal(t, StatusDegraded, agg.OverallStatus(ctx))
		assert.True(t, agg.Ready(ctx))
	})

	t.Run("部分不健康", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"link", StatusUnhealthy}, &mockChecker{"redis", StatusDegraded})
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(ctx))
		assert.False(t, agg.Ready(ctx))
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})
		report := agg.Report(ctx)
		assert.Len(t, report.Checks, 2)
		assert.Equal(t, StatusHealthy, report.Status)
		assert.True(t, agg.Alive())
	})
}

type fixedStatus brick.Status

func (f fixedStatus) Status() brick.Status { return brick.Status(f) }

func TestLinkChecker(t *testing.T) {
	tests := []struct {
		name string
		st   brick.Status
		want Status
	}{
		{"未挂载", brick.Status{}, StatusUnhealthy},
		{"已断开", brick.Status{Attached: true, Guard: brick.GuardStats{State: "closed"}}, StatusUnhealthy},
		{"链路可疑", brick.Status{Attached: true, Connected: true, Guard: brick.GuardStats{State: "open"}}, StatusDegraded},
		{"正常", brick.Status{Attached: true, Connected: true, ChannelState: "idle", Guard: brick.GuardStats{State: "closed"}}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewLinkChecker(fixedStatus(tt.st)).Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Contains(t, res.Details, "guard_state")
		})
	}
}

type fakeEventRedis struct {
	pingErr error
	subs    int64
	pool    redis.PoolStats
}

func (f *fakeEventRedis) HealthCheck(context.Context) error { return f.pingErr }
func (f *fakeEventRedis) Channel() string                   { return "ev3:events" }
func (f *fakeEventRedis) Subscribers(context.Context) (int64, error) {
	return f.subs, nil
}
func (f *fakeEventRedis) Stats() *redis.PoolStats { return &f.pool }

type fixedPublishStats events.PublishStats

func (f fixedPublishStats) Stats() events.PublishStats { return events.PublishStats(f) }

func TestRedisChecker(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeEventRedis
		pub    PublishStatsSource
		want   Status
	}{
		{"ping 失败", &fakeEventRedis{pingErr: errors.New("refused")}, nil, StatusUnhealthy},
		{"正常", &fakeEventRedis{subs: 2, pool: redis.PoolStats{TotalConns: 4, IdleConns: 3}}, fixedPublishStats{Published: 10}, StatusHealthy},
		{"连接池将满", &fakeEventRedis{pool: redis.PoolStats{TotalConns: 10, IdleConns: 0}}, nil, StatusDegraded},
		{"最近发布失败", &fakeEventRedis{}, fixedPublishStats{Published: 3, Failed: 1, LastFailed: true, LastError: "timeout"}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRedisChecker(tt.client, tt.pub).Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "ev3:events", res.Details["channel"])
		})
	}

	res := NewRedisChecker(&fakeEventRedis{subs: 2}, fixedPublishStats{Published: 10}).Check(context.Background())
	assert.Equal(t, int64(2), res.Details["subscribers"])
	assert.Equal(t, uint64(10), res.Details["published"])
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusDegraded, Worse(StatusHealthy, StatusDegraded))
	assert.Equal(t, StatusUnhealthy, Worse(StatusUnhealthy, StatusDegraded))
	assert.Equal(t, StatusHealthy, Worse(StatusHealthy, StatusHealthy))
}

func TestHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"link", StatusUnhealthy}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Contains(t, report.Checks, "link")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.False(t, r.Ready())
	r.SetLinkReady(true)
	assert.False(t, r.Ready())
	r.SetPollersReady(true)
	assert.True(t, r.Ready())
}
