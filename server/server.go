// Package server exposes the snapshot stream over a websocket endpoint.
// The stream is infinite and best-effort: clients never receive a terminal
// error value, only a connection close.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"live-ticker-go/fanout"
	"live-ticker-go/infrastructure/logger"
)

// writeTimeout 单个快照帧的写超时，超时即判定客户端失效并摘除。
const writeTimeout = 10 * time.Second

// Server 对外流式服务。
type Server struct {
	hub      *fanout.Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// New 创建服务实例。
func New(hub *fanout.Hub, log *logger.Logger) *Server {
	return &Server{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Routes 返回挂载了流式端点与健康检查的 mux。
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/l1", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// handleStream 升级连接，订阅快照流并逐帧写出，直到写失败或客户端断开。
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.LogError(err, map[string]interface{}{"where": "ws_upgrade"})
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer sub.Close()

	s.logger.LogVenue("subscriber_attached", "stream", map[string]interface{}{
		"remote": r.RemoteAddr,
	})

	// 读协程只为感知客户端关闭，收到的内容一律丢弃
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			s.logger.LogVenue("subscriber_detached", "stream", map[string]interface{}{
				"remote": r.RemoteAddr,
				"missed": sub.Missed(),
			})
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.LogVenue("subscriber_detached", "stream", map[string]interface{}{
					"remote": r.RemoteAddr,
					"missed": sub.Missed(),
					"error":  err.Error(),
				})
				return
			}
		}
	}
}

// handleHealth 返回存活状态与当前订阅数。
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"subscribers": s.hub.Len(),
	})
}
