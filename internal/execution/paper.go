package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crypto_arbiter/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned when a simulated account cannot cover an
// order.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Fill records one simulated execution.
type Fill struct {
	OrderID    string
	Instrument domain.Instrument
	Side       domain.Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	Fee        decimal.Decimal
	Time       time.Time
}

// PaperDealer is an in-memory Dealer that fills orders immediately at their
// limit price against simulated balances. It lets the engine run end-to-end
// without authenticated exchange credentials.
type PaperDealer struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	fills    []Fill
	ticks    map[domain.Instrument]decimal.Decimal
	fees     map[domain.Instrument]domain.FeeInfo

	defaultTick decimal.Decimal
	defaultFee  domain.FeeInfo
	logger      *slog.Logger
}

// NewPaperDealer creates a dealer with empty balances and default fee and
// tick tables.
func NewPaperDealer() *PaperDealer {
	return &PaperDealer{
		balances:    make(map[string]decimal.Decimal),
		ticks:       make(map[domain.Instrument]decimal.Decimal),
		fees:        make(map[domain.Instrument]domain.FeeInfo),
		defaultTick: decimal.RequireFromString("0.01"),
		defaultFee: domain.FeeInfo{
			MakerRate: decimal.RequireFromString("0.0015"),
			TakerRate: decimal.RequireFromString("0.0025"),
		},
		logger: slog.Default().With("module", "paper_dealer"),
	}
}

// Deposit credits the simulated account.
func (d *PaperDealer) Deposit(currency string, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balances[currency] = d.balances[currency].Add(amount)
}

// Balance returns the current simulated balance for one currency.
func (d *PaperDealer) Balance(currency string) decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balances[currency]
}

// Fills returns a copy of the executions so far.
func (d *PaperDealer) Fills() []Fill {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Fill(nil), d.fills...)
}

// SetTickSize overrides the tick size for one instrument.
func (d *PaperDealer) SetTickSize(instrument domain.Instrument, tick decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks[instrument] = tick
}

// SetFees overrides the fee rates for one instrument.
func (d *PaperDealer) SetFees(instrument domain.Instrument, fees domain.FeeInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fees[instrument] = fees
}

// PlaceOrder fills the order immediately at its price. Buys pay the quote
// currency plus the taker fee; sells receive the quote currency minus it.
func (d *PaperDealer) PlaceOrder(ctx context.Context, order domain.ExchangeOrder) (domain.ExchangeOrder, error) {
	if err := ctx.Err(); err != nil {
		return domain.ExchangeOrder{}, err
	}
	if order.Side() == domain.SideUnknown {
		return domain.ExchangeOrder{}, fmt.Errorf("order carries no direction: %s", order.Type)
	}
	if !order.Price.IsPositive() || !order.Size.IsPositive() {
		return domain.ExchangeOrder{}, fmt.Errorf("order needs a positive price and size: %s", order)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fee := d.feeInfoLocked(order.Instrument)
	notional := order.Price.Mul(order.Size)
	charge := notional.Mul(fee.TakerRate)

	base, quote := order.Instrument.Base, order.Instrument.Quote
	switch order.Side() {
	case domain.SideBid:
		cost := notional.Add(charge)
		if d.balances[quote].LessThan(cost) {
			return domain.ExchangeOrder{}, fmt.Errorf("%w: need %s %s", ErrInsufficientFunds, cost, quote)
		}
		d.balances[quote] = d.balances[quote].Sub(cost)
		d.balances[base] = d.balances[base].Add(order.Size)
	case domain.SideAsk:
		if d.balances[base].LessThan(order.Size) {
			return domain.ExchangeOrder{}, fmt.Errorf("%w: need %s %s", ErrInsufficientFunds, order.Size, base)
		}
		d.balances[base] = d.balances[base].Sub(order.Size)
		d.balances[quote] = d.balances[quote].Add(notional.Sub(charge))
	}

	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.Status = domain.OrderStatusFilled
	order.PlacedAt = &now

	d.fills = append(d.fills, Fill{
		OrderID:    order.ID,
		Instrument: order.Instrument,
		Side:       order.Side(),
		Price:      order.Price,
		Size:       order.Size,
		Fee:        charge,
		Time:       now,
	})

	d.logger.Info("paper order filled", slog.String("order", order.String()))
	return order, nil
}

// CancelOrder always reports false: paper orders fill on placement, so there
// is never a resting order to cancel.
func (d *PaperDealer) CancelOrder(ctx context.Context, _ domain.ExchangeOrder) (bool, error) {
	return false, ctx.Err()
}

// GetTickSize serves the tick table, falling back to the default.
func (d *PaperDealer) GetTickSize(ctx context.Context, instrument domain.Instrument) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Decimal{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if tick, ok := d.ticks[instrument]; ok {
		return tick, nil
	}
	return d.defaultTick, nil
}

// GetFeeInfo serves the fee table, falling back to the default rates.
func (d *PaperDealer) GetFeeInfo(ctx context.Context, instrument domain.Instrument) (domain.FeeInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.FeeInfo{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feeInfoLocked(instrument), nil
}

func (d *PaperDealer) feeInfoLocked(instrument domain.Instrument) domain.FeeInfo {
	if fees, ok := d.fees[instrument]; ok {
		return fees
	}
	return d.defaultFee
}
