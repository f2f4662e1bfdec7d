package service

import (
	"context"
	"sort"
	"sync"

	"crypto_arbiter/internal/domain"

	"github.com/shopspring/decimal"
)

// Quote is one best-of-book observation attributed to its exchange.
type Quote struct {
	Exchange string
	Order    domain.ExchangeOrder
}

// ExchangeQuote holds the latest best bid and ask seen on one exchange.
type ExchangeQuote struct {
	BestBid *domain.ExchangeOrder
	BestAsk *domain.ExchangeOrder
}

// MarketData is the cross-exchange view of one instrument: the per-exchange
// best quotes plus the widest inter-exchange spread currently observable.
type MarketData struct {
	Instrument domain.Instrument
	Quotes     map[string]*ExchangeQuote
	// SpreadPct is 100 * (highest bid - lowest ask) / lowest ask, computed
	// only across two different exchanges. Nil until both legs are seen.
	SpreadPct  *decimal.Decimal
	BuyOn      string // Exchange with the lowest ask
	SellOn     string // Exchange with the highest bid
	IsFavorite bool
}

// MarketView aggregates the facades' order-received events into a
// per-instrument cross-exchange picture for the strategy layer.
type MarketView struct {
	mu        sync.RWMutex
	markets   map[domain.Instrument]*MarketData
	quoteChan chan Quote
}

// NewMarketView creates an empty view.
func NewMarketView() *MarketView {
	return &MarketView{
		markets:   make(map[domain.Instrument]*MarketData),
		quoteChan: make(chan Quote, 1000),
	}
}

// Observer returns an order-received callback bound to one exchange,
// suitable for wiring into the facade's handlers.
func (v *MarketView) Observer(exchange string) func(domain.ExchangeOrder) {
	return func(order domain.ExchangeOrder) {
		v.quoteChan <- Quote{Exchange: exchange, Order: order}
	}
}

// QuoteChan returns the channel for incoming quote observations.
func (v *MarketView) QuoteChan() chan Quote {
	return v.quoteChan
}

// StartQuoteProcessor starts a background goroutine that drains the quote
// channel until the context is cancelled.
func (v *MarketView) StartQuoteProcessor(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case q := <-v.quoteChan:
				v.ProcessQuote(q)
			}
		}
	}()
}

// ProcessQuote folds one observation into the view and recomputes the
// instrument's spread.
func (v *MarketView) ProcessQuote(q Quote) {
	side := q.Order.Side()
	if side == domain.SideUnknown || q.Exchange == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	data := v.marketLocked(q.Order.Instrument)
	eq, ok := data.Quotes[q.Exchange]
	if !ok {
		eq = &ExchangeQuote{}
		data.Quotes[q.Exchange] = eq
	}

	order := q.Order
	if side == domain.SideBid {
		eq.BestBid = &order
	} else {
		eq.BestAsk = &order
	}
	v.calculateSpread(data)
}

// GetData returns the view for one instrument, or nil when nothing has been
// observed yet.
func (v *MarketView) GetData(instrument domain.Instrument) *MarketData {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.markets[instrument]
}

// GetAllData returns all instrument views sorted by instrument for
// consistent ordering.
func (v *MarketView) GetAllData() []*MarketData {
	v.mu.RLock()
	defer v.mu.RUnlock()

	result := make([]*MarketData, 0, len(v.markets))
	for _, data := range v.markets {
		result = append(result, data)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Instrument.String() < result[j].Instrument.String()
	})
	return result
}

// SetFavorite flags an instrument for the consumer's watch list.
func (v *MarketView) SetFavorite(instrument domain.Instrument, favorite bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.marketLocked(instrument).IsFavorite = favorite
}

// marketLocked finds or creates the instrument entry. Must be called with
// the lock held.
func (v *MarketView) marketLocked(instrument domain.Instrument) *MarketData {
	data, ok := v.markets[instrument]
	if !ok {
		data = &MarketData{
			Instrument: instrument,
			Quotes:     make(map[string]*ExchangeQuote),
		}
		v.markets[instrument] = data
	}
	return data
}

// calculateSpread recomputes the widest inter-exchange spread: sell at the
// bid of one exchange, buy at the ask of another. Same-exchange pairs are
// not arbitrage and are skipped. Must be called with the lock held.
func (v *MarketView) calculateSpread(data *MarketData) {
	data.SpreadPct = nil
	data.BuyOn, data.SellOn = "", ""

	for sellOn, sellEq := range data.Quotes {
		if sellEq.BestBid == nil {
			continue
		}
		for buyOn, buyEq := range data.Quotes {
			if buyOn == sellOn || buyEq.BestAsk == nil || !buyEq.BestAsk.Price.IsPositive() {
				continue
			}
			spread := sellEq.BestBid.Price.Sub(buyEq.BestAsk.Price).
				Div(buyEq.BestAsk.Price).Mul(decimal.NewFromInt(100))
			if data.SpreadPct == nil || spread.GreaterThan(*data.SpreadPct) {
				s := spread
				data.SpreadPct = &s
				data.BuyOn = buyOn
				data.SellOn = sellOn
			}
		}
	}
}
