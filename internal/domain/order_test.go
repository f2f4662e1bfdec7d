package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderSide_Derivation(t *testing.T) {
	tests := []struct {
		name string
		typ  OrderType
		want Side
	}{
		{"buy is bid", OrderTypeBuy, SideBid},
		{"sell is ask", OrderTypeSell, SideAsk},
		{"buy limit is bid", OrderTypeBuy | OrderTypeLimit, SideBid},
		{"sell market is ask", OrderTypeSell | OrderTypeMarket, SideAsk},
		{"no direction is unknown", OrderTypeLimit, SideUnknown},
		{"empty is unknown", 0, SideUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := ExchangeOrder{Type: tt.typ}
			if got := o.Side(); got != tt.want {
				t.Errorf("Side() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_IsLike(t *testing.T) {
	btc, _ := ParseInstrument("BTC-USD")
	eth, _ := ParseInstrument("ETH-USD")

	a := ExchangeOrder{ID: "1", Instrument: btc, Type: OrderTypeSell, Price: decimal.NewFromInt(100)}
	b := ExchangeOrder{ID: "2", Instrument: btc, Type: OrderTypeSell | OrderTypeLimit, Price: decimal.NewFromInt(200)}

	// Same instrument+side with different ids and prices occupy the same slot.
	if !a.IsLike(b) {
		t.Error("expected same-slot orders to be alike")
	}

	c := ExchangeOrder{Instrument: btc, Type: OrderTypeBuy}
	if a.IsLike(c) {
		t.Error("opposite sides must not be alike")
	}

	d := ExchangeOrder{Instrument: eth, Type: OrderTypeSell}
	if a.IsLike(d) {
		t.Error("different instruments must not be alike")
	}

	// Orders without a direction never match any slot.
	e := ExchangeOrder{Instrument: btc}
	if e.IsLike(e) {
		t.Error("directionless orders must not be alike, even to themselves")
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"bid", SideBid, false},
		{"ask", SideAsk, false},
		{"both", SideBoth, false},
		{"", SideBoth, false},
		{"Buy", SideBid, false},
		{"SELL", SideAsk, false},
		{"sideways", SideUnknown, true},
	}

	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseInstrument(t *testing.T) {
	i, err := ParseInstrument("btc-usd")
	if err != nil {
		t.Fatalf("ParseInstrument failed: %v", err)
	}
	if i.Base != "BTC" || i.Quote != "USD" {
		t.Errorf("unexpected instrument: %+v", i)
	}
	if i.String() != "BTC-USD" {
		t.Errorf("String() = %q, want BTC-USD", i.String())
	}

	for _, bad := range []string{"", "BTC", "BTC-", "-USD", "BTC-USD-X"} {
		if _, err := ParseInstrument(bad); err == nil {
			t.Errorf("ParseInstrument(%q) should fail", bad)
		}
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBid.Opposite() != SideAsk || SideAsk.Opposite() != SideBid {
		t.Error("bid and ask must be opposites")
	}
	if SideBoth.Opposite() != SideUnknown || SideUnknown.Opposite() != SideUnknown {
		t.Error("both/unknown have no opposite")
	}
}
