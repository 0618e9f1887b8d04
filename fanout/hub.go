// Package fanout distributes the snapshot stream to any number of independent
// subscribers. Publishing never blocks: a slow subscriber loses its oldest
// buffered snapshot and the loss is counted on its subscription.
package fanout

import (
	"sync"
	"sync/atomic"

	"live-ticker-go/metrics"
	"live-ticker-go/ticker"
)

// Subscription 一个订阅者的游标：从订阅时刻起接收之后发布的每个快照。
// 错过的快照不可回放。
type Subscription struct {
	C <-chan ticker.Snapshot

	ch     chan ticker.Snapshot
	hub    *Hub
	missed atomic.Int64
	once   sync.Once
}

// Missed 返回因缓冲溢出被挤掉的快照数。
func (s *Subscription) Missed() int64 {
	return s.missed.Load()
}

// Close 取消订阅并关闭通道。可重复调用。
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub 快照分发器。
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	bufSize int
}

// NewHub 创建分发器；bufSize 为每个订阅者的缓冲容量。
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe 注册新订阅者，游标定位在"现在"。
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan ticker.Snapshot, h.bufSize),
		hub: h,
	}
	sub.C = sub.ch

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	metrics.Subscribers.Inc()
	return sub
}

// Publish 向所有订阅者投递快照。永不阻塞：缓冲满则先挤掉最旧的一个。
// 没有订阅者时为空操作。
func (h *Hub) Publish(snap ticker.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- snap:
			continue
		default:
		}
		// 缓冲满：丢最旧，再尝试投递新的
		select {
		case <-sub.ch:
			sub.missed.Add(1)
			metrics.SnapshotsMissed.Inc()
		default:
		}
		select {
		case sub.ch <- snap:
		default:
			sub.missed.Add(1)
			metrics.SnapshotsMissed.Inc()
		}
	}
}

// Len 返回当前订阅者数量。
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// remove 摘除订阅者并关闭其通道。持有写锁期间没有并发 Publish，
// 因此关闭是安全的。
func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
		metrics.Subscribers.Dec()
	}
	h.mu.Unlock()
}
