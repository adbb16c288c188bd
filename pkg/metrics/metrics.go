package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// 聊天命令
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "decodo_bot",
			Name:      "commands_total",
			Help:      "Total number of chat commands handled",
		},
		[]string{"command", "result"}, // result: ok / error / unauthorized
	)

	// 上游统计接口
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "decodo_bot",
			Name:      "upstream_requests_total",
			Help:      "Total number of statistics API requests",
		},
		[]string{"proxy_type", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "decodo_bot",
			Name:      "upstream_request_duration_seconds",
			Help:      "Statistics API request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"proxy_type"},
	)

	// 最近一次查询到的用量
	UsedBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "decodo_bot",
			Name:      "used_bytes",
			Help:      "Traffic used in the current window as of the last successful query",
		},
	)

	ChartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "decodo_bot",
			Name:      "charts_rendered_total",
			Help:      "Total number of rendered charts",
		},
		[]string{"format"}, // png / html / json
	)
)

var registerOnce sync.Once

// Register 注册所有指标，仅在启用状态服务时由 main 调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CommandsTotal,
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			UsedBytes,
			ChartsRenderedTotal,
		)
	})
}

// ObserveUpstream 记录一次上游请求，status 为 HTTP 状态码，0 表示网络错误
func ObserveUpstream(proxyType string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(proxyType, label).Inc()
	UpstreamRequestDuration.WithLabelValues(proxyType).Observe(elapsed.Seconds())
}
