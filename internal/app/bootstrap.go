package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/exchange"
	"crypto_arbiter/internal/execution"
	"crypto_arbiter/internal/infra"
	"crypto_arbiter/internal/infra/storage"
	"crypto_arbiter/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	Exchanges []*exchange.Exchange
	View      *service.MarketView
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (Config, Logger, DB,
// exchange facades).
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Crypto Arbiter...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Cross-exchange market view
	b.View = service.NewMarketView()

	// 5. Exchange facades from the registry
	for name, excfg := range cfg.Exchanges {
		kind, err := exchange.ParseKind(name)
		if err != nil {
			slog.Warn("skipping unrecognized exchange", slog.String("name", name))
			continue
		}

		// Observation runs against the paper dealer; authenticated dealers
		// plug in through the same interface.
		ex, err := exchange.New(kind, excfg, execution.NewPaperDealer(),
			exchange.WithTickStore(store))
		if err != nil {
			return err
		}

		subs, err := cfg.SubscriptionsFor(name)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if err := ex.Subscribe(sub); err != nil {
				return err
			}
		}

		observe := b.View.Observer(name)
		ex.SetHandlers(exchange.Handlers{
			OnOrderReceived: observe,
			OnPrivateTrade: func(t domain.Trade) {
				slog.Info("private trade completed",
					slog.String("exchange", name),
					slog.String("price", t.Price.String()),
					slog.String("size", t.Size.String()),
				)
			},
			OnOrderDismissed: func(d domain.OrderDismissal) {
				slog.Info("order dismissed",
					slog.String("exchange", name),
					slog.String("order_id", d.OrderID),
					slog.String("reason", d.Reason),
				)
			},
		})

		b.Exchanges = append(b.Exchanges, ex)
		slog.Info("✅ Exchange ready",
			slog.String("exchange", name),
			slog.Int("subscriptions", len(subs)),
		)
	}

	return nil
}

// StartObservation turns every exchange monitor on.
func (b *Bootstrap) StartObservation() {
	for _, ex := range b.Exchanges {
		if _, err := ex.StartObservation(); err != nil {
			slog.Error("failed to start observation",
				slog.String("exchange", ex.Name()), slog.Any("error", err))
		}
	}
}

// StopObservation turns every exchange monitor off, waiting for each to
// settle.
func (b *Bootstrap) StopObservation() {
	for _, ex := range b.Exchanges {
		ex.StopObservation()
	}
}

// SyncCatalog seeds the instrument catalog from the configured subscriptions
// in the background, preserving user favorites across runs.
func (b *Bootstrap) SyncCatalog(ctx context.Context) {
	slog.Info("🔄 Starting instrument catalog sync...")

	unique := make(map[domain.Instrument]bool)
	for name := range b.Config.Exchanges {
		subs, err := b.Config.SubscriptionsFor(name)
		if err != nil {
			continue
		}
		for _, sub := range subs {
			unique[sub.Instrument] = true
		}
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent DB writes

	for instrument := range unique {
		wg.Add(1)
		go func(ins domain.Instrument) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			info := &domain.InstrumentInfo{
				Symbol:    ins.String(),
				Base:      ins.Base,
				Quote:     ins.Quote,
				UpdatedAt: time.Now(),
			}

			// Check if exists to preserve IsFavorite and the tick cache
			if existing, _ := b.Storage.GetInstrument(ins.String()); existing != nil {
				info.IsFavorite = existing.IsFavorite
				info.TickSize = existing.TickSize
				info.LastSeenAt = existing.LastSeenAt
			}

			if err := b.Storage.UpsertInstrument(info); err != nil {
				slog.Error("Failed to upsert instrument",
					slog.String("symbol", ins.String()), slog.Any("error", err))
			}
		}(instrument)
	}

	wg.Wait()
	slog.Info("✨ Instrument catalog sync completed")
}
