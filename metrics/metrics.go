// Package metrics provides Prometheus metrics for the ticker pipeline
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesReceived 各交易所成功解码并进入聚合的报价数
	QuotesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lt_quotes_received_total",
		Help: "Quotes decoded and emitted into the ingest queue, per venue",
	}, []string{"venue"})

	// DecodeErrors 各交易所丢弃的异常消息数
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lt_decode_errors_total",
		Help: "Messages discarded due to decode failure, per venue",
	}, []string{"venue"})

	// WSReconnects 各交易所重连次数
	WSReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lt_ws_reconnects_total",
		Help: "Upstream websocket reconnect attempts, per venue",
	}, []string{"venue"})

	// WSConnected 各交易所连接状态（1=已连接）。持续为 0 即为重连风暴的健康信号。
	WSConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lt_ws_connected",
		Help: "Whether the upstream websocket is currently connected, per venue",
	}, []string{"venue"})

	// QuotesDropped 入队失败（队列满）被丢弃的报价数
	QuotesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lt_quotes_dropped_total",
		Help: "Quotes dropped because the ingest queue was full",
	})

	// SnapshotsPublished 聚合器发布的快照总数
	SnapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lt_snapshots_published_total",
		Help: "Snapshots published by the aggregator",
	})

	// SnapshotsMissed 慢订阅者被挤掉的快照总数
	SnapshotsMissed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lt_snapshots_missed_total",
		Help: "Snapshots evicted from slow subscriber buffers",
	})

	// Subscribers 当前订阅者数量
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lt_subscribers",
		Help: "Currently attached snapshot subscribers",
	})
)

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
