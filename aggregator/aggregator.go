// Package aggregator merges per-venue quotes into a consolidated snapshot and
// republishes it on every update.
package aggregator

import (
	"live-ticker-go/infrastructure/logger"
	"live-ticker-go/metrics"
	"live-ticker-go/ticker"
)

// Sink 接收聚合结果。Publish 不得阻塞（fanout.Hub 满足该约束）。
type Sink interface {
	Publish(ticker.Snapshot)
}

// Aggregator 持有 venue -> 最新报价 的状态表。
// 状态只被 Run 所在的单一 goroutine 读写，无需加锁。
type Aggregator struct {
	sink   Sink
	logger *logger.Logger
	state  map[string]ticker.Quote
}

// New 创建聚合器。
func New(sink Sink, log *logger.Logger) *Aggregator {
	return &Aggregator{
		sink:   sink,
		logger: log,
		state:  make(map[string]ticker.Quote),
	}
}

// Run 消费入队报价直到通道关闭。每收到一条报价：
// 覆盖对应 venue 条目（同 venue 后到覆盖先到，不比较时间戳），
// 物化完整快照并发布。与上一条数值相同的报价同样触发发布。
func (a *Aggregator) Run(in <-chan ticker.Quote) {
	for q := range in {
		a.state[q.Venue] = q
		a.sink.Publish(a.snapshot())
		metrics.SnapshotsPublished.Inc()
	}
	a.logger.Info("aggregator stopped: ingest queue closed")
}

// snapshot 物化当前全部 venue 的最新报价。
func (a *Aggregator) snapshot() ticker.Snapshot {
	venues := make([]ticker.Quote, 0, len(a.state))
	for _, q := range a.state {
		venues = append(venues, q)
	}
	return ticker.Snapshot{Venues: venues}
}
