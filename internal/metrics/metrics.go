package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	CommandsTotal    *prometheus.CounterVec // labels: reply=true|false
	RepliesTotal     *prometheus.CounterVec // labels: result=ok|link|validation|protocol|decode
	ProtocolErrors   *prometheus.CounterVec // labels: kind
	PollTicksTotal   *prometheus.CounterVec // labels: result=ok|skipped|invalid
	EdgeEventsTotal  *prometheus.CounterVec // labels: event
	LinkConnected    prometheus.Gauge
	ExchangeDuration prometheus.Histogram
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ev3_commands_total",
			Help: "Direct commands sent to the brick.",
		}, []string{"reply"}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ev3_replies_total",
			Help: "Command exchanges by result class.",
		}, []string{"result"}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ev3_protocol_errors_total",
			Help: "Protocol violations and decode failures by kind.",
		}, []string{"kind"}),
		PollTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ev3_poll_ticks_total",
			Help: "Sensor polling ticks by result.",
		}, []string{"result"}),
		EdgeEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ev3_edge_events_total",
			Help: "Edge events raised by sensor pollers.",
		}, []string{"event"}),
		LinkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ev3_link_connected",
			Help: "1 when the brick link is attached and connected.",
		}),
		ExchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ev3_exchange_duration_seconds",
			Help:    "Duration of a command exchange including reply read.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	reg.MustRegister(m.CommandsTotal, m.RepliesTotal, m.ProtocolErrors, m.PollTicksTotal,
		m.EdgeEventsTotal, m.LinkConnected, m.ExchangeDuration)
	return m
}
