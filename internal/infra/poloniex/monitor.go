package poloniex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/shopspring/decimal"
)

// Strategy supplies the exchange-specific pulse steps to the polling
// scheduler. The exchange flags halted markets with isFrozen; frozen
// responses are skipped entirely so a stale market is never cached as
// tradeable.
type Strategy struct {
	client  *Client
	onOrder func(domain.ExchangeOrder)
	logger  *slog.Logger
}

// NewStrategy creates the pulse strategy. onOrder receives every normalized
// best-of-book order.
func NewStrategy(client *Client, onOrder func(domain.ExchangeOrder)) *Strategy {
	return &Strategy{
		client:  client,
		onOrder: onOrder,
		logger:  slog.Default().With("module", "poloniex_monitor"),
	}
}

// Pulse downloads the order book for one subscription. Transport failures
// are logged and yield an empty result; the scheduler cycle continues.
func (s *Strategy) Pulse(ctx context.Context, sub domain.Subscription) (string, error) {
	raw, err := s.client.GetOrderBook(ctx, sub.Instrument)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Error("failed to retrieve the order book",
			slog.String("instrument", sub.Instrument.String()),
			slog.Any("error", err),
		)
		infra.GlobalMetrics.RecordFetchError()
		return "", nil
	}
	return raw, nil
}

// Publish deserializes a pulse response and delivers one order per side the
// subscription asked for.
func (s *Strategy) Publish(raw string, sub domain.Subscription) {
	if s.onOrder == nil {
		return
	}

	var book orderBookResponse
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		s.logger.Error("failed to deserialize the order book response", slog.Any("error", err))
		s.logger.Info("the response string was", slog.String("response", raw))
		infra.GlobalMetrics.RecordParseError()
		return
	}

	if frozen, _ := strconv.Atoi(book.IsFrozen); frozen != 0 {
		s.logger.Warn("the market is currently frozen, skipping",
			slog.String("instrument", sub.Instrument.String()),
		)
		return
	}

	if sub.Sides.Has(domain.SideAsk) {
		if lowestAsk, ok := bestRow(book.Asks, false); ok {
			s.onOrder(domain.ExchangeOrder{
				Instrument: sub.Instrument,
				Type:       domain.OrderTypeSell,
				Price:      lowestAsk[0],
				Size:       lowestAsk[1],
			})
		}
	}

	if sub.Sides.Has(domain.SideBid) {
		if highestBid, ok := bestRow(book.Bids, true); ok {
			s.onOrder(domain.ExchangeOrder{
				Instrument: sub.Instrument,
				Type:       domain.OrderTypeBuy,
				Price:      highestBid[0],
				Size:       highestBid[1],
			})
		}
	}
}

// FeedMessages builds one channel subscription command per instrument.
// Instruments without a known channel fail the whole build; no partial
// subscription is sent.
func (s *Strategy) FeedMessages(subs []domain.Subscription) ([][]byte, error) {
	var msgs [][]byte
	var unsupported []error

	for _, sub := range subs {
		channel, ok := tradingChannels[pairNotation(sub.Instrument)]
		if !ok {
			unsupported = append(unsupported,
				fmt.Errorf("%w: %s", domain.ErrUnsupportedInstrument, sub.Instrument))
			continue
		}
		msg, err := json.Marshal(command{Command: "subscribe", Channel: channel})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	if len(unsupported) > 0 {
		return nil, errors.Join(unsupported...)
	}
	return msgs, nil
}

// bestRow picks the row with the maximum (or minimum) price from
// [price, size] rows, skipping malformed ones.
func bestRow(rows [][]decimal.Decimal, max bool) ([]decimal.Decimal, bool) {
	var best []decimal.Decimal
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if best == nil {
			best = row
			continue
		}
		if max && row[0].GreaterThan(best[0]) {
			best = row
		} else if !max && row[0].LessThan(best[0]) {
			best = row
		}
	}
	return best, best != nil
}
