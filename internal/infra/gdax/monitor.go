package gdax

import (
	"context"
	"encoding/json"
	"log/slog"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/shopspring/decimal"
)

// Strategy supplies the exchange-specific pulse steps to the polling
// scheduler: download the level-2 book, then publish the best entry of each
// requested side as a normalized order.
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
		logger:  slog.Default().With("module", "gdax_monitor"),
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
// subscription asked for. A response that fails to parse is logged with its
// payload and discarded; the next pulse tries again.
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

// FeedMessages builds one subscribe message covering every registered
// instrument on the full channel.
func (s *Strategy) FeedMessages(subs []domain.Subscription) ([][]byte, error) {
	if len(subs) == 0 {
		return nil, nil
	}

	products := make([]string, 0, len(subs))
	for _, sub := range subs {
		products = append(products, sub.Instrument.String())
	}

	msg, err := json.Marshal(subscribeMessage{
		Type:       "subscribe",
		ProductIDs: products,
		Channels:   []string{"full"},
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{msg}, nil
}

// bestRow picks the row with the maximum (or minimum) price from
// [price, size, ...] rows, skipping malformed ones.
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
