package exchange

import (
	"sync"

	"crypto_arbiter/internal/domain"
)

// orderBook is the best-of-book cache. It holds at most one current order per
// (instrument, side) slot; ingestion replaces the prior slot occupant.
// Entries are replaced whole, never mutated in place, so snapshot readers
// never observe a half-updated order.
type orderBook struct {
	mu     sync.Mutex
	orders []domain.ExchangeOrder
}

// Ingest stores the order, replacing an existing entry that occupies the same
// slot. Last write wins.
func (b *orderBook) Ingest(order domain.ExchangeOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, o := range b.orders {
		if o.IsLike(order) {
			b.orders[i] = order
			return
		}
	}
	b.orders = append(b.orders, order)
}

// Snapshot returns a point-in-time copy of the cache, optionally filtered.
// A nil predicate selects everything.
func (b *orderBook) Snapshot(pred func(domain.ExchangeOrder) bool) []domain.ExchangeOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.ExchangeOrder, 0, len(b.orders))
	for _, o := range b.orders {
		if pred == nil || pred(o) {
			out = append(out, o)
		}
	}
	return out
}

// Best returns the cached best order for one side of an instrument.
func (b *orderBook) Best(instrument domain.Instrument, side domain.Side) (domain.ExchangeOrder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.orders {
		if o.Instrument == instrument && o.Side() == side {
			return o, true
		}
	}
	return domain.ExchangeOrder{}, false
}

// placedOrders is the set of orders this process has submitted and not yet
// seen resolved.
type placedOrders struct {
	mu     sync.Mutex
	orders []domain.ExchangeOrder
}

// Add registers a successfully placed order.
func (p *placedOrders) Add(order domain.ExchangeOrder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
}

// Match finds the placed order whose id equals the trade's maker or taker id.
func (p *placedOrders) Match(makerID, takerID string) (domain.ExchangeOrder, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, o := range p.orders {
		if o.ID != "" && (o.ID == makerID || o.ID == takerID) {
			return o, true
		}
	}
	return domain.ExchangeOrder{}, false
}

// Remove deletes exactly one order by id. Other orders on the same
// instrument stay untouched.
func (p *placedOrders) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, o := range p.orders {
		if o.ID == id {
			p.orders = append(p.orders[:i], p.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the outstanding placed orders.
func (p *placedOrders) Snapshot() []domain.ExchangeOrder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ExchangeOrder(nil), p.orders...)
}

// Len returns the number of outstanding placed orders.
func (p *placedOrders) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}
