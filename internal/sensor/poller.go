package sensor

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/ev3-gateway/internal/metrics"
)

// ErrPollerClosed 轮询器已关闭
var ErrPollerClosed = errors.New("sensor poller closed")

// DefaultInterval 默认轮询周期
const DefaultInterval = 50 * time.Millisecond

// Event 边沿事件
type Event struct {
	Sensor   string    `json:"sensor"`
	Port     string    `json:"port"`
	Kind     EventKind `json:"kind"`
	Value    float64   `json:"value"`
	Previous float64   `json:"previous"`
	At       time.Time `json:"at"`
}

// Handler 事件回调，在轮询 goroutine 上执行，读操作已结束
type Handler func(Event)

// run 一次启动的轮询；停止后不可复用
type run struct {
	stop chan struct{}
	done chan struct{}
}

// Poller 周期读取一个传感器并按规则产生边沿事件。
// 仅在存在订阅时运行；最后一个订阅取消后不再发起读取。
type Poller struct {
	sensor   *Sensor
	rule     Rule
	interval time.Duration
	log      *zap.Logger
	metrics  *metrics.AppMetrics

	mu     sync.Mutex
	subs   map[int]Handler
	nextID int
	active *run
	closed bool

	// tickMu 覆盖一次读取及基线更新
	tickMu sync.Mutex
	known  bool
	last   float64
}

// PollerOption 轮询器选项
type PollerOption func(*Poller)

// WithInterval 设置轮询周期
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPollMetrics 记录轮询指标
func WithPollMetrics(m *metrics.AppMetrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller 创建轮询器
func NewPoller(s *Sensor, rule Rule, opts ...PollerOption) *Poller {
	p := &Poller{
		sensor:   s,
		rule:     rule,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		subs:     make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(zap.String("port", s.Port()), zap.String("sensor", s.Spec().Kind))
	return p
}

// Sensor 被轮询的传感器
func (p *Poller) Sensor() *Sensor { return p.sensor }

// Subscribe 注册回调；第一个订阅启动轮询，重新启动时丢弃旧基线
func (p *Poller) Subscribe(h Handler) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPollerClosed
	}
	p.nextID++
	id := p.nextID
	p.subs[id] = h
	if p.active == nil {
		// 锁顺序 mu -> tickMu；step 持有 tickMu 时不取 mu
		p.tickMu.Lock()
		p.known = false
		p.tickMu.Unlock()
		r := &run{stop: make(chan struct{}), done: make(chan struct{})}
		p.active = r
		go p.loop(r)
		p.log.Debug("sensor polling started")
	}
	return id, nil
}

// Unsubscribe 取消订阅；返回后若已无订阅，则不会再有读取发出。
// 可在 Handler 中调用。
func (p *Poller) Unsubscribe(id int) {
	p.mu.Lock()
	delete(p.subs, id)
	var r *run
	if len(p.subs) == 0 && p.active != nil {
		r = p.active
		p.active = nil
	}
	p.mu.Unlock()

	if r != nil {
		p.halt(r)
	}
}

// Subscribers 当前订阅数
func (p *Poller) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Running 是否在轮询
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active != nil
}

// Reset 丢弃基线，下一次有效读数重新作为基线
func (p *Poller) Reset() {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	p.known = false
}

// Last 最近一次有效读数
func (p *Poller) Last() (float64, bool) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	return p.last, p.known
}

// Close 取消全部订阅并等待轮询 goroutine 退出。不可在 Handler 中调用。
func (p *Poller) Close() {
	p.mu.Lock()
	p.closed = true
	p.subs = make(map[int]Handler)
	r := p.active
	p.active = nil
	p.mu.Unlock()

	if r != nil {
		p.halt(r)
		<-r.done
	}
}

// halt 等待在途读取结束后通知 goroutine 退出
func (p *Poller) halt(r *run) {
	p.tickMu.Lock()
	close(r.stop)
	p.tickMu.Unlock()
	p.log.Debug("sensor polling stopped")
}

func (p *Poller) loop(r *run) {
	defer close(r.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			p.tick(r)
		}
	}
}

// tick 执行一次轮询并分发事件
func (p *Poller) tick(r *run) {
	ev, ok := p.step(r)
	if !ok {
		return
	}
	p.mu.Lock()
	if p.active != r {
		p.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(p.subs))
	for _, h := range p.subs {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// step 读取一次并与基线比较；仅在产生事件时返回 true
func (p *Poller) step(r *run) (Event, bool) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	select {
	case <-r.stop:
		return Event{}, false
	default:
	}

	if !p.sensor.Connected() {
		p.countTick("skipped")
		return Event{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*p.interval)
	reading, err := p.sensor.Read(ctx)
	cancel()
	if err != nil || math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		// 无效读数不更新基线
		p.countTick("invalid")
		if err != nil {
			p.log.Debug("sensor read failed", zap.Error(err))
		}
		return Event{}, false
	}
	p.countTick("ok")

	if !p.known {
		p.known = true
		p.last = reading.Value
		return Event{}, false
	}

	prev := p.last
	p.last = reading.Value
	kind, fired := p.rule.Evaluate(prev, reading.Value)
	if !fired {
		return Event{}, false
	}
	if p.metrics != nil {
		p.metrics.EdgeEventsTotal.WithLabelValues(string(kind)).Inc()
	}
	return Event{
		Sensor:   p.sensor.Spec().Kind,
		Port:     p.sensor.Port(),
		Kind:     kind,
		Value:    reading.Value,
		Previous: prev,
		At:       reading.At,
	}, true
}

func (p *Poller) countTick(result string) {
	if p.metrics != nil {
		p.metrics.PollTicksTotal.WithLabelValues(result).Inc()
	}
}
