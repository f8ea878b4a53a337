package brick

import (
	"errors"
	"sync"
	"time"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// GuardState 链路保护状态
type GuardState int

const (
	GuardClosed   GuardState = iota // 正常，允许命令
	GuardOpen                       // 链路可疑，拒绝命令
	GuardHalfOpen                   // 冷却结束，放行一条试探命令
)

func (s GuardState) String() string {
	switch s {
	case GuardClosed:
		return "closed"
	case GuardOpen:
		return "open"
	case GuardHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// LinkGuard 协议违例熔断：连续违例达到阈值后将链路标记为可疑。
// 只有协议/解码错误计数，参数校验与链路错误不影响状态。
type LinkGuard struct {
	mu            sync.Mutex
	state         GuardState
	failureCount  int
	lastFailTime  time.Time
	lastStateTime time.Time
	tripCount     int64
	probing       bool

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	onStateChange func(from, to GuardState)
}

// NewLinkGuard 创建链路保护
func NewLinkGuard(threshold int, cooldown time.Duration) *LinkGuard {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &LinkGuard{
		state:         GuardClosed,
		threshold:     threshold,
		cooldown:      cooldown,
		now:           time.Now,
		lastStateTime: time.Now(),
	}
}

// Allow 命令发送前检查
func (g *LinkGuard) Allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GuardClosed:
		return nil
	case GuardOpen:
		if g.now().Sub(g.lastFailTime) >= g.cooldown {
			g.transitionTo(GuardHalfOpen)
			g.probing = true
			return nil
		}
		return ev3.ErrLinkSuspect
	case GuardHalfOpen:
		// 试探命令在途时拒绝其他命令
		if g.probing {
			return ev3.ErrLinkSuspect
		}
		g.probing = true
		return nil
	}
	return ev3.ErrLinkSuspect
}

// Record 记录一次交换结果
func (g *LinkGuard) Record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	violation := errors.Is(err, ev3.ErrProtocol) || errors.Is(err, ev3.ErrDecode)
	if g.state == GuardHalfOpen {
		g.probing = false
	}
	switch {
	case violation:
		g.failureCount++
		g.lastFailTime = g.now()
		if g.state == GuardHalfOpen || g.failureCount >= g.threshold {
			if g.state != GuardOpen {
				g.tripCount++
			}
			g.transitionTo(GuardOpen)
		}
	case err == nil:
		g.failureCount = 0
		if g.state == GuardHalfOpen {
			g.transitionTo(GuardClosed)
		}
	}
}

// Reset 重新挂载链路时恢复正常
func (g *LinkGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transitionTo(GuardClosed)
	g.failureCount = 0
	g.probing = false
}

// State 当前状态
func (g *LinkGuard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SetStateChangeCallback 设置状态变化回调
func (g *LinkGuard) SetStateChangeCallback(fn func(from, to GuardState)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onStateChange = fn
}

// Stats 统计信息
func (g *LinkGuard) Stats() GuardStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GuardStats{
		State:           g.state.String(),
		FailureCount:    g.failureCount,
		TripCount:       g.tripCount,
		LastStateChange: g.lastStateTime,
	}
}

func (g *LinkGuard) transitionTo(s GuardState) {
	if g.state == s {
		return
	}
	old := g.state
	g.state = s
	g.lastStateTime = g.now()
	if g.onStateChange != nil {
		go g.onStateChange(old, s)
	}
}

// GuardStats 链路保护统计
type GuardStats struct {
	State           string    `json:"state"`
	FailureCount    int       `json:"failure_count"`
	TripCount       int64     `json:"trip_count"`
	LastStateChange time.Time `json:"last_state_change"`
}
