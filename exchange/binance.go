package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/metrics"
	"live-ticker-go/ticker"
)

// BinanceWSEndpoint 默认行情接入地址。
const BinanceWSEndpoint = "wss://stream.binance.com:9443"

const binanceVenue = "binance"

// binanceDepth 对应 depth10@100ms 推送：价格/数量为字符串编码的 [price, size] 元组。
// 缺失一侧时对应切片为 nil。
type binanceDepth struct {
	Bids [][2]json.Number `json:"bids"`
	Asks [][2]json.Number `json:"asks"`
}

// Binance 管理到 Binance 深度流的连接，含自动重连。
type Binance struct {
	Endpoint string
	Dialer   *websocket.Dialer
	logger   *logger.Logger
}

// NewBinance 创建 Binance 适配器。
func NewBinance(log *logger.Logger) *Binance {
	return &Binance{
		Endpoint: BinanceWSEndpoint,
		Dialer:   websocket.DefaultDialer,
		logger:   log,
	}
}

// Name 返回 venue 标识。
func (b *Binance) Name() string { return binanceVenue }

// BinanceInstrument 把 BASE-QUOTE 转成 Binance 的符号格式（小写拼接）。
func BinanceInstrument(pair string) string {
	return strings.ToLower(strings.ReplaceAll(pair, "-", ""))
}

// Start 启动连接循环（后台 goroutine）。
func (b *Binance) Start(ctx context.Context, instrument string, sink chan<- ticker.Quote) {
	go b.runWS(ctx, instrument, sink)
}

// runWS 连接 + 读取，断开后固定间隔重连。
func (b *Binance) runWS(ctx context.Context, instrument string, sink chan<- ticker.Quote) {
	url := fmt.Sprintf("%s/ws/%s@depth10@100ms", b.Endpoint, instrument)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := b.Dialer.DialContext(ctx, url, nil)
		if err != nil {
			b.logger.LogVenue("ws_dial_failed", binanceVenue, map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
			metrics.WSReconnects.WithLabelValues(binanceVenue).Inc()
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		metrics.WSConnected.WithLabelValues(binanceVenue).Set(1)
		b.logger.LogVenue("ws_connected", binanceVenue, map[string]interface{}{
			"instrument": instrument,
		})

		b.readLoop(ctx, conn, sink)

		metrics.WSConnected.WithLabelValues(binanceVenue).Set(0)
		metrics.WSReconnects.WithLabelValues(binanceVenue).Inc()
		b.logger.LogVenue("ws_disconnected", binanceVenue, nil)
	}
}

// readLoop 读取消息直到出错或 ctx 取消。
func (b *Binance) readLoop(ctx context.Context, conn *websocket.Conn, sink chan<- ticker.Quote) {
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.LogVenue("ws_read_error", binanceVenue, map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		q, err := NormalizeBinance(msg)
		if err != nil {
			metrics.DecodeErrors.WithLabelValues(binanceVenue).Inc()
			b.logger.LogDecodeError(binanceVenue, err, msg)
			continue
		}
		emit(sink, q)
	}
}

// NormalizeBinance 把一条深度推送转成最优买卖报价。
// 只取每侧的第一档；缺失的一侧保持 0。
func NormalizeBinance(raw []byte) (ticker.Quote, error) {
	var depth binanceDepth
	if err := json.Unmarshal(raw, &depth); err != nil {
		return ticker.Quote{}, fmt.Errorf("parse depth: %w", err)
	}

	q := ticker.Quote{Venue: binanceVenue}
	if len(depth.Bids) > 0 {
		price, err := depth.Bids[0][0].Float64()
		if err != nil {
			return ticker.Quote{}, fmt.Errorf("parse bid price: %w", err)
		}
		size, err := depth.Bids[0][1].Float64()
		if err != nil {
			return ticker.Quote{}, fmt.Errorf("parse bid size: %w", err)
		}
		q.BidPrice, q.BidSize = price, size
	}
	if len(depth.Asks) > 0 {
		price, err := depth.Asks[0][0].Float64()
		if err != nil {
			return ticker.Quote{}, fmt.Errorf("parse ask price: %w", err)
		}
		size, err := depth.Asks[0][1].Float64()
		if err != nil {
			return ticker.Quote{}, fmt.Errorf("parse ask size: %w", err)
		}
		q.AskPrice, q.AskSize = price, size
	}
	return q, nil
}
