package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"
)

// Strategy supplies the exchange-specific steps of the polling cycle. One
// scheduler implementation serves every exchange; each exchange contributes
// a strategy value instead of a subclass.
type Strategy interface {
	// Pulse downloads the order book for one subscription and returns the raw
	// response body. Transport failures are handled inside the strategy (logged,
	// empty result); a non-nil error is unexpected and stops the monitor.
	Pulse(ctx context.Context, sub domain.Subscription) (string, error)

	// Publish deserializes a raw pulse response and delivers the normalized
	// orders to the order-received callback. The monitor runs it on its own
	// goroutine so that parsing latency does not count against the request
	// budget.
	Publish(raw string, sub domain.Subscription)

	// FeedMessages builds the wire messages that subscribe the push feed to
	// the given subscriptions. May return no messages for exchanges whose
	// feed needs none.
	FeedMessages(subs []domain.Subscription) ([][]byte, error)
}

// Monitor drives one feed adapter through a repeating, rate-limited cycle
// over its subscriptions. Externally it is a Busy/idle state machine:
// On starts the run loop, Off requests cancellation and waits a bounded
// time for it to settle.
type Monitor struct {
	exchange      string
	requestPeriod time.Duration
	feed          domain.Feed
	strat         Strategy
	handlers      domain.FeedHandlers
	logger        *slog.Logger

	mu     sync.Mutex
	busy   bool
	subs   []domain.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a monitor for one exchange. maxRequestsPerMinute caps the
// aggregate pulse rate across all subscriptions; values below 1 are clamped.
func New(exchange string, maxRequestsPerMinute int, feed domain.Feed, strat Strategy) *Monitor {
	if maxRequestsPerMinute < 1 {
		maxRequestsPerMinute = 1
	}
	return &Monitor{
		exchange:      exchange,
		requestPeriod: time.Minute / time.Duration(maxRequestsPerMinute),
		feed:          feed,
		strat:         strat,
		logger:        slog.Default().With("module", "monitor", "exchange", exchange),
	}
}

// RequestPeriod returns the minimum time between successive pulses.
func (m *Monitor) RequestPeriod() time.Duration {
	return m.requestPeriod
}

// Busy reports whether the run loop is active.
func (m *Monitor) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// SetHandlers installs the feed event callbacks. Must be called before On.
func (m *Monitor) SetHandlers(h domain.FeedHandlers) {
	m.handlers = h
}

// Subscribe registers a quote subscription. Rejected while the monitor is
// running; duplicate subscriptions are ignored.
func (m *Monitor) Subscribe(sub domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return domain.NewStateError("Subscribe", "monitoring is in progress, call Off first")
	}
	for _, s := range m.subs {
		if s == sub {
			return nil
		}
	}
	m.subs = append(m.subs, sub)
	return nil
}

// Unsubscribe removes a quote subscription. Rejected while running.
func (m *Monitor) Unsubscribe(sub domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return domain.NewStateError("Unsubscribe", "monitoring is in progress, call Off first")
	}
	for i, s := range m.subs {
		if s == sub {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return nil
}

// Subscriptions returns a copy of the registered subscriptions.
func (m *Monitor) Subscriptions() []domain.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Subscription(nil), m.subs...)
}

// On starts the run loop and returns immediately. The returned channel is
// closed when the loop exits. Starting an already-busy monitor fails with a
// state error and spawns nothing.
func (m *Monitor) On() (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return nil, domain.NewStateError("On", "monitoring is already in progress")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.busy = true
	m.cancel = cancel
	m.done = done

	go func() {
		defer func() {
			m.mu.Lock()
			m.busy = false
			m.mu.Unlock()
			infra.GlobalMetrics.DecrementMonitors()
			close(done)
		}()
		infra.GlobalMetrics.IncrementMonitors()
		m.run(ctx)
	}()

	return done, nil
}

// Off requests cancellation and blocks until the run loop settles or ten
// request periods elapse. A settle timeout is logged as a warning; callers
// can still observe Busy afterwards. Off on an idle monitor is a no-op.
func (m *Monitor) Off() {
	m.mu.Lock()
	if !m.busy {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(10 * m.requestPeriod):
		m.logger.Warn("failed to shut down the monitor gracefully")
	}
}

// run executes the pulse cycle until cancelled or a pulse fails fatally.
// Subscriptions are immutable while busy, so the loop reads them unlocked.
func (m *Monitor) run(ctx context.Context) {
	handlers := m.handlers
	userOnOpen := handlers.OnOpen
	handlers.OnOpen = func() {
		m.subscribeFeed()
		if userOnOpen != nil {
			userOnOpen()
		}
	}
	m.feed.SetHandlers(handlers)

	if err := m.feed.Open(ctx); err != nil {
		m.logger.Warn("feed open failed, continuing with polling only", slog.Any("error", err))
	}
	defer m.feed.Close()

	for ctx.Err() == nil {
		for _, sub := range m.subs {
			if ctx.Err() != nil {
				return
			}

			start := time.Now()
			raw, err := m.strat.Pulse(ctx, sub)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					m.logger.Debug("monitoring has been cancelled")
					return
				}
				m.logger.Error("the monitor automatically switched off",
					slog.String("subscription", sub.String()),
					slog.Any("error", err),
				)
				return
			}
			infra.GlobalMetrics.RecordPulse(time.Since(start).Nanoseconds())

			if raw != "" {
				go m.strat.Publish(raw, sub)
			}

			if elapsed := time.Since(start); elapsed < m.requestPeriod {
				if !m.sleep(ctx, m.requestPeriod-elapsed) {
					m.logger.Debug("monitoring cancelled")
					return
				}
			}
		}

		// An empty subscription list must not spin the loop hot.
		if len(m.subs) == 0 {
			if !m.sleep(ctx, m.requestPeriod) {
				return
			}
		}
	}
}

// sleep waits for d or until cancellation. Returns false when cancelled.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// subscribeFeed builds and sends the feed subscription messages. Send
// failures are logged, never fatal: the poll path still produces quotes.
func (m *Monitor) subscribeFeed() {
	msgs, err := m.strat.FeedMessages(m.subs)
	if err != nil {
		m.logger.Error("failed to build the feed subscription message", slog.Any("error", err))
		return
	}
	for _, msg := range msgs {
		if err := m.feed.Subscribe(msg); err != nil {
			m.logger.Error("failed to send the feed subscription message", slog.Any("error", err))
		}
	}
}
