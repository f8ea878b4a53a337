package health

import "sync/atomic"

// Readiness 就绪状态：链路已挂载、轮询已启动
type Readiness struct {
	linkReady    atomic.Bool
	pollersReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetLinkReady(v bool)    { r.linkReady.Store(v) }
func (r *Readiness) SetPollersReady(v bool) { r.pollersReady.Store(v) }

// Ready 总体就绪：各子系统均为 true
func (r *Readiness) Ready() bool {
	return r.linkReady.Load() && r.pollersReady.Load()
}
