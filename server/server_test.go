package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-ticker-go/fanout"
	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/ticker"
)

func newTestServer(t *testing.T) (*httptest.Server, *fanout.Hub) {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	hub := fanout.NewHub(8)
	ts := httptest.NewServer(New(hub, log).Routes())
	t.Cleanup(ts.Close)
	return ts, hub
}

func waitSubscribers(t *testing.T, hub *fanout.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestStreamDeliversSnapshots 客户端连上后收到之后发布的每个快照
func TestStreamDeliversSnapshots(t *testing.T) {
	ts, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/l1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitSubscribers(t, hub, 1)

	want := ticker.Snapshot{Venues: []ticker.Quote{
		{Venue: "binance", BidPrice: 100.0, BidSize: 10.0, AskPrice: 100.5, AskSize: 5.0},
	}}
	hub.Publish(want)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got ticker.Snapshot
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, want, got)
}

// TestStreamDetach 客户端断开后订阅者被摘除
func TestStreamDetach(t *testing.T) {
	ts, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/l1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	waitSubscribers(t, hub, 1)

	conn.Close()
	waitSubscribers(t, hub, 0)
}

// TestHealthz 健康检查返回订阅者数量
func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}
