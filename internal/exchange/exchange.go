package exchange

import (
	"context"
	"fmt"
	"log/slog"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"
	"crypto_arbiter/internal/monitor"

	"github.com/shopspring/decimal"
)

// Handlers are the notification slots the facade republishes to. All slots
// are optional.
type Handlers struct {
	// OnOrderReceived fires for every normalized quote observation, before
	// the cache mutation is applied. Consumers may see an event whose effect
	// is not yet visible in GetCachedOrders.
	OnOrderReceived func(domain.ExchangeOrder)
	// OnPrivateTrade fires only for trades in which this process is maker
	// or taker.
	OnPrivateTrade func(domain.Trade)
	// OnOrderDismissed relays the feed's dismissal events verbatim.
	OnOrderDismissed func(domain.OrderDismissal)
}

// TickStore caches tick sizes across dealer lookups. Implemented by the
// sqlite instrument catalog.
type TickStore interface {
	CachedTickSize(instrument domain.Instrument) (decimal.Decimal, bool)
	StoreTickSize(instrument domain.Instrument, tick decimal.Decimal) error
}

// Exchange composes a monitor and a dealer behind one object. It owns the
// order-book cache and the placed-orders set, reconciles observed trades
// against its own orders, and adapts market orders for exchanges that do not
// accept them.
type Exchange struct {
	name     string
	monitor  *monitor.Monitor
	dealer   domain.Dealer
	policy   Policy
	book     *orderBook
	placed   *placedOrders
	handlers Handlers
	ticks    TickStore
	logger   *slog.Logger
}

// Name returns the exchange name.
func (e *Exchange) Name() string {
	return e.name
}

// SetHandlers installs the notification callbacks. Must be called before
// StartObservation.
func (e *Exchange) SetHandlers(h Handlers) {
	e.handlers = h
}

// Subscribe registers a quote subscription with the monitor. Rejected while
// observation is running.
func (e *Exchange) Subscribe(sub domain.Subscription) error {
	return e.monitor.Subscribe(sub)
}

// Unsubscribe removes a quote subscription. Rejected while running.
func (e *Exchange) Unsubscribe(sub domain.Subscription) error {
	return e.monitor.Unsubscribe(sub)
}

// StartObservation wires the feed events into the reconciliation paths and
// starts the monitor. The returned channel is closed when the run loop exits.
func (e *Exchange) StartObservation() (<-chan struct{}, error) {
	e.monitor.SetHandlers(domain.FeedHandlers{
		OnOrderbookUpdate: e.receiveOrder,
		OnTrade:           e.tradeOccurred,
		OnOrderDismissed:  e.orderDismissed,
	})
	return e.monitor.On()
}

// StopObservation requests cancellation and waits a bounded time for the
// monitor to settle.
func (e *Exchange) StopObservation() {
	e.monitor.Off()
}

// Busy reports whether observation is running.
func (e *Exchange) Busy() bool {
	return e.monitor.Busy()
}

// GetCachedOrders returns a consistent point-in-time snapshot of the
// order-book cache, optionally filtered.
func (e *Exchange) GetCachedOrders(pred func(domain.ExchangeOrder) bool) []domain.ExchangeOrder {
	return e.book.Snapshot(pred)
}

// PlacedOrders returns a copy of the outstanding self-placed orders.
func (e *Exchange) PlacedOrders() []domain.ExchangeOrder {
	return e.placed.Snapshot()
}

// receiveOrder ingests one normalized quote. The notification fires before
// the cache mutation; consumers rely on this ordering.
func (e *Exchange) receiveOrder(order domain.ExchangeOrder) {
	if e.handlers.OnOrderReceived != nil {
		e.handlers.OnOrderReceived(order)
	}
	e.book.Ingest(order)
	infra.GlobalMetrics.RecordOrderCached()
}

// tradeOccurred reconciles one observed trade against the placed-orders set.
// A trade matching none of our orders is public market noise and is dropped.
func (e *Exchange) tradeOccurred(trade domain.Trade) {
	matched, ok := e.placed.Match(trade.MakerOrderID, trade.TakerOrderID)
	if !ok {
		return
	}

	if e.handlers.OnPrivateTrade != nil {
		e.handlers.OnPrivateTrade(trade)
	}
	e.placed.Remove(matched.ID)
	infra.GlobalMetrics.RecordPrivateTrade()

	e.logger.Info("private trade completed",
		slog.String("order_id", matched.ID),
		slog.String("price", trade.Price.String()),
		slog.String("size", trade.Size.String()),
	)
}

// orderDismissed relays the feed's dismissal event verbatim.
func (e *Exchange) orderDismissed(d domain.OrderDismissal) {
	infra.GlobalMetrics.RecordDismissal()
	if e.handlers.OnOrderDismissed != nil {
		e.handlers.OnOrderDismissed(d)
	}
}

// PlaceOrder adapts the order per the exchange policy, submits it through
// the dealer and registers the result for trade reconciliation.
func (e *Exchange) PlaceOrder(ctx context.Context, order domain.ExchangeOrder) (domain.ExchangeOrder, error) {
	adapted, err := e.adaptOrder(order)
	if err != nil {
		return domain.ExchangeOrder{}, err
	}

	placed, err := e.dealer.PlaceOrder(ctx, adapted)
	if err != nil {
		return domain.ExchangeOrder{}, err
	}

	e.placed.Add(placed)
	e.logger.Info("order placed", slog.String("order", placed.String()))
	return placed, nil
}

// adaptOrder converts a market order into a marketable limit order when the
// exchange accepts no market orders. The limit price is the opposing best
// from this exchange's own cache, adjusted by the configured slippage
// allowance. No opposing price means no valid adaptation; the dealer is
// never called.
func (e *Exchange) adaptOrder(order domain.ExchangeOrder) (domain.ExchangeOrder, error) {
	if !e.policy.ConvertMarketOrders || !order.Type.Has(domain.OrderTypeMarket) {
		return order, nil
	}

	opposing, ok := e.book.Best(order.Instrument, order.Side().Opposite())
	if !ok {
		return domain.ExchangeOrder{}, fmt.Errorf("%w: %s %s",
			domain.ErrNoOpposingPrice, order.Instrument, order.Side())
	}

	price := opposing.Price
	if !e.policy.Slippage.IsZero() {
		allowance := price.Mul(e.policy.Slippage).Div(decimal.NewFromInt(100))
		if order.Side() == domain.SideBid {
			price = price.Add(allowance)
		} else {
			price = price.Sub(allowance)
		}
	}

	order.Type = order.Type &^ domain.OrderTypeMarket
	order.Type |= domain.OrderTypeLimit
	order.Price = price

	e.logger.Debug("market order converted to a marketable limit order",
		slog.String("order", order.String()),
	)
	return order, nil
}

// CancelOrder delegates to the dealer and drops the order from the placed
// set on confirmed cancellation.
func (e *Exchange) CancelOrder(ctx context.Context, order domain.ExchangeOrder) (bool, error) {
	ok, err := e.dealer.CancelOrder(ctx, order)
	if err != nil {
		return false, err
	}
	if ok {
		e.placed.Remove(order.ID)
	}
	return ok, nil
}

// GetTick returns the instrument's tick size, served from the tick store
// when one is configured and a cached value exists.
func (e *Exchange) GetTick(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	if e.ticks != nil {
		if tick, ok := e.ticks.CachedTickSize(instrument); ok {
			return tick, nil
		}
	}

	tick, err := e.dealer.GetTickSize(ctx, instrument)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if e.ticks != nil {
		if err := e.ticks.StoreTickSize(instrument, tick); err != nil {
			e.logger.Warn("failed to cache the tick size", slog.Any("error", err))
		}
	}
	return tick, nil
}

// GetFee passes the fee lookup through to the dealer.
func (e *Exchange) GetFee(ctx context.Context, instrument domain.Instrument) (domain.FeeInfo, error) {
	return e.dealer.GetFeeInfo(ctx, instrument)
}
