package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/metrics"
	"live-ticker-go/ticker"
)

// OKXWSEndpoint 默认公共行情地址。
const OKXWSEndpoint = "wss://ws.okx.com:8443/ws/v5/public"

const okxVenue = "okx"

// okxChannel books5 提供 5 档深度快照推送。
const okxChannel = "books5"

// handshakeTimeout 订阅确认的最长等待时间。
const handshakeTimeout = 10 * time.Second

// okxSubscribeRequest 连接后必须立即发送的订阅命令。
type okxSubscribeRequest struct {
	Op   string            `json:"op"`
	Args []okxSubscribeArg `json:"args"`
}

type okxSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// okxMessage 同时覆盖订阅响应（event 非空）和深度推送（data 非空）。
// 深度元组为 [price, size, orderCount, level]，后两个字段解码时即被丢弃。
type okxMessage struct {
	Event string    `json:"event"`
	Data  []okxBook `json:"data"`
}

type okxBook struct {
	Asks [][2]json.Number `json:"asks"`
	Bids [][2]json.Number `json:"bids"`
}

// OKX 管理到 OKX 公共频道的连接，含订阅握手与自动重连。
type OKX struct {
	Endpoint string
	Dialer   *websocket.Dialer
	logger   *logger.Logger
}

// NewOKX 创建 OKX 适配器。
func NewOKX(log *logger.Logger) *OKX {
	return &OKX{
		Endpoint: OKXWSEndpoint,
		Dialer:   websocket.DefaultDialer,
		logger:   log,
	}
}

// Name 返回 venue 标识。
func (o *OKX) Name() string { return okxVenue }

// OKXInstrument 把 BASE-QUOTE 转成 OKX 的 instId 格式（原样保留）。
func OKXInstrument(pair string) string {
	return pair
}

// Start 启动连接循环（后台 goroutine）。
func (o *OKX) Start(ctx context.Context, instrument string, sink chan<- ticker.Quote) {
	go o.runWS(ctx, instrument, sink)
}

// runWS 连接 + 订阅 + 读取，断开后固定间隔重连。
func (o *OKX) runWS(ctx context.Context, instrument string, sink chan<- ticker.Quote) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := o.Dialer.DialContext(ctx, o.Endpoint, nil)
		if err != nil {
			o.logger.LogVenue("ws_dial_failed", okxVenue, map[string]interface{}{
				"url":   o.Endpoint,
				"error": err.Error(),
			})
			metrics.WSReconnects.WithLabelValues(okxVenue).Inc()
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		if err := o.subscribe(conn, instrument); err != nil {
			o.logger.LogVenue("subscribe_failed", okxVenue, map[string]interface{}{
				"instrument": instrument,
				"error":      err.Error(),
			})
			_ = conn.Close()
			metrics.WSReconnects.WithLabelValues(okxVenue).Inc()
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}

		metrics.WSConnected.WithLabelValues(okxVenue).Set(1)
		o.logger.LogVenue("ws_connected", okxVenue, map[string]interface{}{
			"instrument": instrument,
			"channel":    okxChannel,
		})

		o.readLoop(ctx, conn, sink)

		metrics.WSConnected.WithLabelValues(okxVenue).Set(0)
		metrics.WSReconnects.WithLabelValues(okxVenue).Inc()
		o.logger.LogVenue("ws_disconnected", okxVenue, nil)
	}
}

// subscribe 发送订阅命令并读取确认。确认内容不匹配只记为协议异常，
// 不中断连接；读取本身带超时，避免握手无限等待。
func (o *OKX) subscribe(conn *websocket.Conn, instrument string) error {
	req := okxSubscribeRequest{
		Op:   "subscribe",
		Args: []okxSubscribeArg{{Channel: okxChannel, InstID: instrument}},
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscribe ack: %w", err)
	}

	var ack okxMessage
	if err := json.Unmarshal(msg, &ack); err != nil {
		o.logger.LogVenue("subscribe_ack_anomaly", okxVenue, map[string]interface{}{
			"raw": string(msg),
		})
		return nil
	}
	if ack.Event != "subscribe" {
		// 协议异常：确认帧不符合预期，继续读流
		o.logger.LogVenue("subscribe_ack_anomaly", okxVenue, map[string]interface{}{
			"raw": string(msg),
		})
	}
	return nil
}

// readLoop 读取消息直到出错或 ctx 取消。
func (o *OKX) readLoop(ctx context.Context, conn *websocket.Conn, sink chan<- ticker.Quote) {
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
				o.logger.LogVenue("ws_read_error", okxVenue, map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		q, ok, err := NormalizeOKX(msg)
		if err != nil {
			metrics.DecodeErrors.WithLabelValues(okxVenue).Inc()
			o.logger.LogDecodeError(okxVenue, err, msg)
			continue
		}
		if !ok {
			continue
		}
		emit(sink, q)
	}
}

// NormalizeOKX 把一条 books5 推送转成最优买卖报价。
// 响应/事件帧（event 非空）或空推送返回 ok=false；只取第一个深度条目
// 中每侧的第一个元组，orderCount/level 字段忽略。
func NormalizeOKX(raw []byte) (ticker.Quote, bool, error) {
	var msg okxMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ticker.Quote{}, false, fmt.Errorf("parse push: %w", err)
	}
	if msg.Event != "" || len(msg.Data) == 0 {
		return ticker.Quote{}, false, nil
	}

	book := msg.Data[0]
	q := ticker.Quote{Venue: okxVenue}
	if len(book.Bids) > 0 {
		price, err := book.Bids[0][0].Float64()
		if err != nil {
			return ticker.Quote{}, false, fmt.Errorf("parse bid price: %w", err)
		}
		size, err := book.Bids[0][1].Float64()
		if err != nil {
			return ticker.Quote{}, false, fmt.Errorf("parse bid size: %w", err)
		}
		q.BidPrice, q.BidSize = price, size
	}
	if len(book.Asks) > 0 {
		price, err := book.Asks[0][0].Float64()
		if err != nil {
			return ticker.Quote{}, false, fmt.Errorf("parse ask price: %w", err)
		}
		size, err := book.Asks[0][1].Float64()
		if err != nil {
			return ticker.Quote{}, false, fmt.Errorf("parse ask size: %w", err)
		}
		q.AskPrice, q.AskSize = price, size
	}
	return q, true, nil
}
