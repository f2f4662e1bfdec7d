package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a normalized market trade observed on a feed. Maker and taker
// order ids identify the resting and the aggressing order; either may be
// empty when the exchange does not expose it.
type Trade struct {
	MakerOrderID string
	TakerOrderID string
	Price        decimal.Decimal
	Size         decimal.Decimal
	Timestamp    time.Time
}

// OrderDismissal is raised by a feed when an order leaves the book
// (filled or canceled). It is relayed to consumers verbatim.
type OrderDismissal struct {
	OrderID   string
	Reason    string
	Timestamp time.Time
}

// FeeInfo describes the trading fees for one instrument, as rates
// (0.0025 = 0.25%).
type FeeInfo struct {
	MakerRate decimal.Decimal
	TakerRate decimal.Decimal
}

// FeedHandlers are the callback slots a feed delivers normalized events to.
// All handlers are optional; a nil slot drops the event.
type FeedHandlers struct {
	OnOrderbookUpdate func(ExchangeOrder)
	OnTrade           func(Trade)
	OnOrderDismissed  func(OrderDismissal)
	OnOpen            func()
	OnClose           func()
}
