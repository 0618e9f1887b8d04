package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-ticker-go/aggregator"
	"live-ticker-go/exchange"
	"live-ticker-go/fanout"
	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/ticker"
)

// fakeBinance 模拟 Binance 深度流：接受任意路径的 ws 连接并推送固定帧
type fakeBinance struct {
	frames []string
}

func (f *fakeBinance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for _, frame := range f.frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}
	// 保持连接直到客户端断开，避免触发立即重连
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

// TestAdapterToSubscriberFlow 完整链路：假交易所 -> 适配器 -> 聚合器 -> 分发 -> 订阅者
func TestAdapterToSubscriberFlow(t *testing.T) {
	upstream := httptest.NewServer(&fakeBinance{frames: []string{
		`{"lastUpdateId":1,"bids":[["100.0","10.0"]],"asks":[["100.5","5.0"]]}`,
		`{"bad json`,
		`{"lastUpdateId":2,"bids":[["101.0","8.0"]],"asks":[["101.5","4.0"]]}`,
	}})
	defer upstream.Close()

	log := testLogger(t)
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingest := make(chan ticker.Quote, 32)
	hub := fanout.NewHub(16)
	sub := hub.Subscribe()
	defer sub.Close()

	go aggregator.New(hub, log).Run(ingest)

	adapter := exchange.NewBinance(log)
	adapter.Endpoint = "ws" + strings.TrimPrefix(upstream.URL, "http")
	adapter.Start(ctx, "ethusd", ingest)

	// 第一帧
	snap := receiveSnapshot(t, sub)
	q, ok := snap.Venue("binance")
	if !ok {
		t.Fatalf("snapshot missing binance entry: %+v", snap)
	}
	if q.BidPrice != 100.0 || q.AskPrice != 100.5 {
		t.Fatalf("unexpected first quote: %+v", q)
	}

	// 第二帧非法，被丢弃；第三帧覆盖 binance 条目
	snap = receiveSnapshot(t, sub)
	q, _ = snap.Venue("binance")
	if q.BidPrice != 101.0 || q.BidSize != 8.0 || q.AskPrice != 101.5 || q.AskSize != 4.0 {
		t.Fatalf("unexpected second quote: %+v", q)
	}
	if len(snap.Venues) != 1 {
		t.Fatalf("expected single venue entry, got %d", len(snap.Venues))
	}
}

func receiveSnapshot(t *testing.T, sub *fanout.Subscription) ticker.Snapshot {
	t.Helper()
	select {
	case snap := <-sub.C:
		return snap
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return ticker.Snapshot{}
	}
}
