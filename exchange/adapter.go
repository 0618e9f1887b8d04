// Package exchange contains one adapter per venue. Each adapter owns a single
// upstream websocket, performs the venue handshake, decodes its wire format and
// emits canonical quotes into the shared ingest queue.
package exchange

import (
	"context"
	"time"

	"live-ticker-go/metrics"
	"live-ticker-go/ticker"
)

// Adapter 一个交易所的行情接入。Start 立即返回，连接循环在后台运行，
// 断线后固定间隔重连，进程存活期间不会退出。
type Adapter interface {
	Name() string
	Start(ctx context.Context, instrument string, sink chan<- ticker.Quote)
}

// reconnectDelay 连接失败后的固定重试间隔。
const reconnectDelay = 5 * time.Second

// readTimeout 单次读取的最长等待时间（含订阅确认）。
const readTimeout = 30 * time.Second

// emit 向入队通道非阻塞写入；队列满则丢弃（接受丢失，不反压上游）。
func emit(sink chan<- ticker.Quote, q ticker.Quote) {
	select {
	case sink <- q:
		metrics.QuotesReceived.WithLabelValues(q.Venue).Inc()
	default:
		metrics.QuotesDropped.Inc()
	}
}

// sleepCtx 等待 d，ctx 取消时提前返回 false。
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
