package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Feed is the push-side connection to an exchange. Implementations own the
// websocket transport and translate wire messages into the FeedHandlers
// callbacks.
type Feed interface {
	// Open establishes the connection and starts delivering events. The feed
	// stops when the context is cancelled or Close is called.
	Open(ctx context.Context) error
	// Close tears down the connection. Safe to call on a closed feed.
	Close()
	// Subscribe sends one raw subscription message over the open connection.
	Subscribe(message []byte) error
	// SetHandlers installs the event callbacks. Must be called before Open.
	SetHandlers(h FeedHandlers)
}

// Dealer is the authenticated order-placement boundary of an exchange.
// Implementations live outside the observation core; the engine only
// depends on this contract.
type Dealer interface {
	PlaceOrder(ctx context.Context, order ExchangeOrder) (ExchangeOrder, error)
	CancelOrder(ctx context.Context, order ExchangeOrder) (bool, error)
	GetTickSize(ctx context.Context, instrument Instrument) (decimal.Decimal, error)
	GetFeeInfo(ctx context.Context, instrument Instrument) (FeeInfo, error)
}
