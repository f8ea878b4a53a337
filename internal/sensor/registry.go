package sensor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

// Registry 按端口登记的轮询器
type Registry struct {
	mu      sync.RWMutex
	pollers map[string]*Poller
}

// NewRegistry 创建空登记表
func NewRegistry() *Registry {
	return &Registry{pollers: make(map[string]*Poller)}
}

// Add 登记轮询器；同一端口只能登记一次
func (r *Registry) Add(p *Poller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	port := p.Sensor().Port()
	if _, ok := r.pollers[port]; ok {
		return fmt.Errorf("%w: port %s already has a sensor", ev3.ErrIllegalArgument, port)
	}
	r.pollers[port] = p
	return nil
}

// Get 按端口查找
func (r *Registry) Get(port string) (*Poller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pollers[port]
	return p, ok
}

// All 按端口排序返回
func (r *Registry) All() []*Poller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Poller, 0, len(r.pollers))
	for _, p := range r.pollers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor().Port() < out[j].Sensor().Port() })
	return out
}

// ResetAll 丢弃全部基线，用于链路重新挂载
func (r *Registry) ResetAll() {
	for _, p := range r.All() {
		p.Reset()
	}
}

// CloseAll 关闭全部轮询器
func (r *Registry) CloseAll() {
	for _, p := range r.All() {
		p.Close()
	}
}
