package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order-book side of a quote or an order. It is a flag set so a
// subscription can express interest in both sides at once.
type Side uint8

const (
	SideUnknown Side = 0
	SideBid     Side = 1 << iota
	SideAsk
	SideBoth = SideBid | SideAsk
)

// Has reports whether s contains all flags of o.
func (s Side) Has(o Side) bool {
	return o != 0 && s&o == o
}

// Opposite returns the opposing book side. Unknown and Both map to Unknown.
func (s Side) Opposite() Side {
	switch s {
	case SideBid:
		return SideAsk
	case SideAsk:
		return SideBid
	}
	return SideUnknown
}

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	case SideBoth:
		return "both"
	}
	return "unknown"
}

// ParseSide parses the configuration notation for a side of interest.
// An empty string means both sides.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "bid", "buy":
		return SideBid, nil
	case "ask", "sell":
		return SideAsk, nil
	case "both", "":
		return SideBoth, nil
	}
	return SideUnknown, fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// OrderType is a flag set over direction (Buy/Sell) and execution style
// (Market/Limit). A well-formed order always carries Buy or Sell; Market and
// Limit are mutually exclusive once an order has been adapted for placement.
type OrderType uint8

const (
	OrderTypeBuy OrderType = 1 << iota
	OrderTypeSell
	OrderTypeMarket
	OrderTypeLimit
)

// Has reports whether t contains all flags of o.
func (t OrderType) Has(o OrderType) bool {
	return t&o == o
}

func (t OrderType) String() string {
	var parts []string
	if t.Has(OrderTypeBuy) {
		parts = append(parts, "buy")
	}
	if t.Has(OrderTypeSell) {
		parts = append(parts, "sell")
	}
	if t.Has(OrderTypeMarket) {
		parts = append(parts, "market")
	}
	if t.Has(OrderTypeLimit) {
		parts = append(parts, "limit")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// OrderStatus tracks the lifecycle of an order at the exchange.
type OrderStatus string

const (
	OrderStatusUnknown  OrderStatus = ""
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusActive   OrderStatus = "ACTIVE"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// ExchangeOrder is the normalized view of an order-book entry or a placed
// order. The ID is exchange-assigned and may be empty until placement is
// confirmed; polled best-of-book quotes never carry one.
type ExchangeOrder struct {
	ID         string
	Instrument Instrument
	Type       OrderType
	Price      decimal.Decimal
	Size       decimal.Decimal
	Status     OrderStatus
	PlacedAt   *time.Time
}

// Side derives the book side from the order type. Buy orders rest on the bid
// side, sell orders on the ask side.
func (o ExchangeOrder) Side() Side {
	if o.Type.Has(OrderTypeBuy) {
		return SideBid
	}
	if o.Type.Has(OrderTypeSell) {
		return SideAsk
	}
	return SideUnknown
}

// IsLike reports whether two orders occupy the same market slot: same
// instrument and same side. Polled snapshots carry no stable order-book
// entry id, so slot identity is deliberately looser than ID equality.
func (o ExchangeOrder) IsLike(other ExchangeOrder) bool {
	return o.Instrument == other.Instrument && o.Side() == other.Side() && o.Side() != SideUnknown
}

func (o ExchangeOrder) String() string {
	return fmt.Sprintf("(%s) %s, Size:%s, Price:%s", o.Type, o.Instrument, o.Size, o.Price)
}
