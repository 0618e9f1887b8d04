// Package ticker defines the canonical L1 quote shapes shared by the whole pipeline.
package ticker

// Quote 单一交易所当前最优买卖价。由 Adapter 构造后不再修改。
// 当交易所未推送某一侧时，该侧的价格/数量保持 0。
type Quote struct {
	Venue    string  `json:"venue"`
	BidPrice float64 `json:"bid_price"`
	BidSize  float64 `json:"bid_size"`
	AskPrice float64 `json:"ask_price"`
	AskSize  float64 `json:"ask_size"`
}

// Snapshot 多交易所合并视图：每个 venue 至多一条、且为最新的 Quote。
type Snapshot struct {
	Venues []Quote `json:"venues"`
}

// Venue returns the entry for the given venue identifier.
func (s Snapshot) Venue(name string) (Quote, bool) {
	for _, q := range s.Venues {
		if q.Venue == name {
			return q, true
		}
	}
	return Quote{}, false
}
