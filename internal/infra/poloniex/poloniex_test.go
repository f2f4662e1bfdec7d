package poloniex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"
)

func usdtBTC(t *testing.T) domain.Instrument {
	t.Helper()
	i, err := domain.ParseInstrument("BTC-USDT")
	if err != nil {
		t.Fatal(err)
	}
	return i
}

func collectOrders() (*[]domain.ExchangeOrder, func(domain.ExchangeOrder)) {
	var orders []domain.ExchangeOrder
	return &orders, func(o domain.ExchangeOrder) { orders = append(orders, o) }
}

func TestPairNotation(t *testing.T) {
	if got := pairNotation(usdtBTC(t)); got != "USDT_BTC" {
		t.Errorf("pairNotation = %q, want USDT_BTC", got)
	}
}

func TestInstrumentFromPair(t *testing.T) {
	i, ok := instrumentFromPair("USDT_BTC")
	if !ok || i.Base != "BTC" || i.Quote != "USDT" {
		t.Errorf("instrumentFromPair = %v, %v", i, ok)
	}

	if _, ok := instrumentFromPair("NOPE"); ok {
		t.Error("pair without separator should not parse")
	}
}

func TestStrategy_Publish_BestOfBook(t *testing.T) {
	orders, onOrder := collectOrders()
	s := NewStrategy(nil, onOrder)

	// The exchange mixes quoted prices and bare sizes in the rows.
	raw := `{
		"asks": [["0.0974", 21.6], ["0.0972", 10.2], ["0.0980", 3.5]],
		"bids": [["0.0968", 1.9], ["0.097", 4.4], ["0.0960", 12.0]],
		"isFrozen": "0", "seq": 18849
	}`

	s.Publish(raw, domain.Subscription{Instrument: usdtBTC(t), Sides: domain.SideBoth})

	if len(*orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(*orders))
	}
	if (*orders)[0].Side() != domain.SideAsk || (*orders)[0].Price.String() != "0.0972" {
		t.Errorf("unexpected best ask: %v", (*orders)[0])
	}
	if (*orders)[1].Side() != domain.SideBid || (*orders)[1].Price.String() != "0.097" {
		t.Errorf("unexpected best bid: %v", (*orders)[1])
	}
}

func TestStrategy_Publish_FrozenMarketIsSkipped(t *testing.T) {
	orders, onOrder := collectOrders()
	s := NewStrategy(nil, onOrder)

	raw := `{"asks":[["0.1",1]],"bids":[["0.09",1]],"isFrozen":"1","seq":1}`
	s.Publish(raw, domain.Subscription{Instrument: usdtBTC(t), Sides: domain.SideBoth})

	if len(*orders) != 0 {
		t.Errorf("a frozen market must produce no orders, got %d", len(*orders))
	}
}

func TestStrategy_Publish_MalformedPayload(t *testing.T) {
	orders, onOrder := collectOrders()
	s := NewStrategy(nil, onOrder)

	infra.GlobalMetrics.Reset()
	s.Publish(`{"asks":`, domain.Subscription{Instrument: usdtBTC(t), Sides: domain.SideBoth})

	if len(*orders) != 0 {
		t.Errorf("malformed payloads must produce no orders, got %d", len(*orders))
	}
	if infra.GlobalMetrics.Snapshot().ParseErrors != 1 {
		t.Error("expected a recorded parse error")
	}
}

func TestStrategy_FeedMessages(t *testing.T) {
	s := NewStrategy(nil, nil)

	msgs, err := s.FeedMessages([]domain.Subscription{
		{Instrument: usdtBTC(t), Sides: domain.SideBoth},
	})
	if err != nil {
		t.Fatalf("FeedMessages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 command, got %d", len(msgs))
	}
	if string(msgs[0]) != `{"command":"subscribe","channel":121}` {
		t.Errorf("unexpected command: %s", msgs[0])
	}
}

func TestStrategy_FeedMessages_UnsupportedInstrument(t *testing.T) {
	s := NewStrategy(nil, nil)

	doge, _ := domain.ParseInstrument("DOGE-MOON")
	msgs, err := s.FeedMessages([]domain.Subscription{
		{Instrument: usdtBTC(t), Sides: domain.SideBoth},
		{Instrument: doge, Sides: domain.SideBoth},
	})
	if !errors.Is(err, domain.ErrUnsupportedInstrument) {
		t.Fatalf("expected ErrUnsupportedInstrument, got %v", err)
	}
	if msgs != nil {
		t.Error("no partial subscription may be sent when any instrument is unsupported")
	}
}

func TestClient_GetOrderBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("command") != "returnOrderBook" || q.Get("currencyPair") != "USDT_BTC" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"asks":[],"bids":[],"isFrozen":"0","seq":1}`))
	}))
	defer srv.Close()

	c := NewClient(infra.ExchangeConfig{RestURL: srv.URL})
	raw, err := c.GetOrderBook(context.Background(), usdtBTC(t))
	if err != nil {
		t.Fatalf("GetOrderBook failed: %v", err)
	}
	if raw == "" {
		t.Error("expected a response body")
	}
}

func TestFeed_ParseFrame_MarketDirectives(t *testing.T) {
	f := NewFeed("wss://example.invalid")

	var updates []domain.ExchangeOrder
	var trades []domain.Trade
	f.SetHandlers(domain.FeedHandlers{
		OnOrderbookUpdate: func(o domain.ExchangeOrder) { updates = append(updates, o) },
		OnTrade:           func(tr domain.Trade) { trades = append(trades, tr) },
	})

	frame := `[121, 8099, [
		["o", 1, "0.0971", "2.5"],
		["o", 0, "0.0975", "1.0"],
		["t", "1337", 1, "0.0973", "0.5", 9821734]
	]]`
	if err := f.parseFrame([]byte(frame)); err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 book updates, got %d", len(updates))
	}
	if updates[0].Side() != domain.SideBid || updates[0].Price.String() != "0.0971" {
		t.Errorf("unexpected bid update: %v", updates[0])
	}
	if updates[0].Instrument.String() != "BTC-USDT" {
		t.Errorf("channel 121 should map to BTC-USDT, got %s", updates[0].Instrument)
	}
	if updates[1].Side() != domain.SideAsk {
		t.Errorf("side 0 must map to ask, got %v", updates[1])
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].TakerOrderID != "1337" || trades[0].Price.String() != "0.0973" {
		t.Errorf("unexpected trade: %+v", trades[0])
	}
}

func TestFeed_ParseFrame_SnapshotRegistersChannel(t *testing.T) {
	f := NewFeed("wss://example.invalid")

	frame := `[999, 1, [["i", {"currencyPair": "USDT_ETH", "orderBook": [{}, {}]}]]]`
	if err := f.parseFrame([]byte(frame)); err != nil {
		t.Fatalf("parseFrame failed: %v", err)
	}

	if got := f.instrumentFor(999); got.String() != "ETH-USDT" {
		t.Errorf("snapshot should register the channel mapping, got %s", got)
	}
}

func TestFeed_ParseFrame_ReservedChannels(t *testing.T) {
	f := NewFeed("wss://example.invalid")

	var updates []domain.ExchangeOrder
	f.SetHandlers(domain.FeedHandlers{
		OnOrderbookUpdate: func(o domain.ExchangeOrder) { updates = append(updates, o) },
	})

	for _, frame := range []string{
		`[1001, "someone says hi"]`,
		`[1002, null, [1, "50000", "50001"]]`,
		`[1003, null, {"users": 5}]`,
		`[1010]`,
	} {
		if err := f.parseFrame([]byte(frame)); err != nil {
			t.Errorf("reserved frame %s should parse cleanly: %v", frame, err)
		}
	}

	if len(updates) != 0 {
		t.Errorf("reserved channels must not produce market data, got %d", len(updates))
	}
}

func TestFeed_ParseFrame_UnknownDirectiveTag(t *testing.T) {
	f := NewFeed("wss://example.invalid")

	err := f.parseFrame([]byte(`[121, 1, [["x", 1, "0.1", "1"]]]`))
	var pe *domain.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a ProtocolError, got %v", err)
	}
}

func TestFeed_HandleMessage_NeverPanics(t *testing.T) {
	f := NewFeed("wss://example.invalid")

	for _, frame := range []string{
		``, `not json`, `[]`, `["what"]`, `[121]`, `[121, 1]`, `[121, 1, "no list"]`,
		`[121, 1, [["o", 1]]]`, `[121, 1, [["t", "1"]]]`,
	} {
		f.handleMessage([]byte(frame))
	}
}
