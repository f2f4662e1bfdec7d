package exchange

import (
	"fmt"
	"log/slog"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"
	"crypto_arbiter/internal/infra/gdax"
	"crypto_arbiter/internal/infra/poloniex"
	"crypto_arbiter/internal/monitor"

	"github.com/shopspring/decimal"
)

// Kind identifies a supported exchange in the registry.
type Kind string

const (
	KindGdax     Kind = "gdax"
	KindPoloniex Kind = "poloniex"
)

// ParseKind resolves a configuration name to a registered exchange kind.
func ParseKind(name string) (Kind, error) {
	kind := Kind(name)
	if _, ok := builders[kind]; !ok {
		return "", fmt.Errorf("unknown exchange kind: %q", name)
	}
	return kind, nil
}

// Policy is the per-exchange order-placement policy.
type Policy struct {
	// ConvertMarketOrders turns market orders into marketable limit orders
	// for exchanges that accept no market orders.
	ConvertMarketOrders bool
	// Slippage is the percentage allowance applied to the marketable limit
	// price. Zero prices the order exactly at the opposing best.
	Slippage decimal.Decimal
}

// builder assembles the kind-specific feed and pulse strategy. onOrder is the
// facade's ingestion callback.
type builder func(cfg infra.ExchangeConfig, onOrder func(domain.ExchangeOrder)) (domain.Feed, monitor.Strategy)

var builders = map[Kind]builder{
	KindGdax: func(cfg infra.ExchangeConfig, onOrder func(domain.ExchangeOrder)) (domain.Feed, monitor.Strategy) {
		return gdax.NewFeed(cfg.WSURL), gdax.NewStrategy(gdax.NewClient(cfg), onOrder)
	},
	KindPoloniex: func(cfg infra.ExchangeConfig, onOrder func(domain.ExchangeOrder)) (domain.Feed, monitor.Strategy) {
		return poloniex.NewFeed(cfg.WSURL), poloniex.NewStrategy(poloniex.NewClient(cfg), onOrder)
	},
}

// marketOrderSupport records which exchanges accept native market orders.
// The others get the marketable-limit conversion.
var marketOrderSupport = map[Kind]bool{
	KindGdax:     true,
	KindPoloniex: false,
}

// Option customizes an exchange facade.
type Option func(*Exchange)

// WithTickStore routes tick-size lookups through a persistent cache.
func WithTickStore(ts TickStore) Option {
	return func(e *Exchange) { e.ticks = ts }
}

// New assembles the facade for one exchange kind: feed, pulse strategy,
// monitor and policy resolved through the registry tables.
func New(kind Kind, cfg infra.ExchangeConfig, dealer domain.Dealer, opts ...Option) (*Exchange, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown exchange kind: %q", kind)
	}

	e := &Exchange{
		name:   string(kind),
		dealer: dealer,
		policy: Policy{
			ConvertMarketOrders: !marketOrderSupport[kind],
			Slippage:            cfg.SlippagePct,
		},
		book:   &orderBook{},
		placed: &placedOrders{},
		logger: slog.Default().With("module", "exchange", "exchange", string(kind)),
	}

	feed, strat := build(cfg, e.receiveOrder)
	e.monitor = monitor.New(string(kind), cfg.MaxRequestsPerMinute, feed, strat)

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}
