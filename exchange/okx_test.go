package exchange

import "testing"

func TestNormalizeOKXPush(t *testing.T) {
	raw := []byte(`{
		"arg":{"channel":"books5","instId":"ETH-BTC"},
		"data":[
			{
				"asks":[
					["100.5","5.1","0","1"],
					["101.23","13.33","0","2"]
				],
				"bids":[
					["100.0","10.0","0","9"],
					["90.0","22.0","0","8"]
				],
				"instId":"ETH-BTC",
				"ts":"1700582054108",
				"seqId":1062841525
			}
		]
	}`)
	q, ok, err := NormalizeOKX(raw)
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	if !ok {
		t.Fatalf("push payload should yield a quote")
	}
	if q.Venue != "okx" {
		t.Fatalf("unexpected venue: %s", q.Venue)
	}
	if q.BidPrice != 100.0 || q.BidSize != 10.0 {
		t.Fatalf("unexpected bid: %.4f x %.4f", q.BidPrice, q.BidSize)
	}
	if q.AskPrice != 100.5 || q.AskSize != 5.1 {
		t.Fatalf("unexpected ask: %.4f x %.4f", q.AskPrice, q.AskSize)
	}
}

func TestNormalizeOKXSubscribeAck(t *testing.T) {
	raw := []byte(`{"event":"subscribe","arg":{"channel":"books5","instId":"ETH-BTC"},"connId":"b5ceefd8"}`)
	_, ok, err := NormalizeOKX(raw)
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	if ok {
		t.Fatalf("ack frame must not yield a quote")
	}
}

func TestNormalizeOKXEmptyData(t *testing.T) {
	raw := []byte(`{"arg":{"channel":"books5","instId":"ETH-BTC"},"data":[]}`)
	_, ok, err := NormalizeOKX(raw)
	if err != nil {
		t.Fatalf("normalize err: %v", err)
	}
	if ok {
		t.Fatalf("empty push must not yield a quote")
	}
}

func TestNormalizeOKXMalformedPrice(t *testing.T) {
	raw := []byte(`{"data":[{"asks":[["oops","5.1","0","1"]],"bids":[["100.0","10.0","0","9"]]}]}`)
	if _, _, err := NormalizeOKX(raw); err == nil {
		t.Fatalf("expected error for non-numeric price")
	}
}

func TestOKXInstrument(t *testing.T) {
	if got := OKXInstrument("ETH-USD"); got != "ETH-USD" {
		t.Fatalf("unexpected instrument: %s", got)
	}
}
