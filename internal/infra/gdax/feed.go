package gdax

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	gdaxMaxRetries  = 10
	gdaxBaseDelay   = 1 * time.Second
	gdaxMaxDelay    = 60 * time.Second
	gdaxReadTimeout = 60 * time.Second
	gdaxDialTimeout = 10 * time.Second
)

// Feed is the websocket push feed. Messages carry a "type" discriminator;
// "done" maps to order-dismissed and "match" to trade. Malformed payloads
// for a known type are logged and dropped, never crash the feed.
type Feed struct {
	url      string
	handlers domain.FeedHandlers
	conn     *websocket.Conn
	mu       sync.RWMutex
	writeMu  sync.Mutex
	open     bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewFeed creates a feed for the given websocket endpoint.
func NewFeed(wsURL string) *Feed {
	return &Feed{
		url:    wsURL,
		logger: slog.Default().With("module", "gdax_feed"),
	}
}

// SetHandlers installs the event callbacks. Must be called before Open.
func (f *Feed) SetHandlers(h domain.FeedHandlers) {
	f.handlers = h
}

// Open starts the connection loop with automatic reconnection.
func (f *Feed) Open(ctx context.Context) error {
	f.mu.Lock()
	if f.open {
		f.mu.Unlock()
		return domain.NewStateError("Open", "the feed is already open")
	}
	f.open = true
	f.mu.Unlock()

	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.connectionLoop(ctx)

	return nil
}

// connectionLoop handles connection and reconnection with exponential backoff
func (f *Feed) connectionLoop(ctx context.Context) {
	defer f.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("feed panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("feed connection loop stopped")
			return
		default:
		}

		err := f.connect(ctx)
		if err != nil {
			f.logger.Warn("feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := calculateBackoff(retryCount)
			retryCount++
			if retryCount > gdaxMaxRetries {
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		f.readLoop(ctx)

		if f.handlers.OnClose != nil {
			f.handlers.OnClose()
		}
	}
}

// calculateBackoff returns the delay for the current retry attempt
func calculateBackoff(retryCount int) time.Duration {
	delay := gdaxBaseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > gdaxMaxDelay {
		delay = gdaxMaxDelay
	}
	return delay
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: gdaxDialTimeout}

	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.logger.Info("feed connected", slog.String("url", f.url))

	// The monitor re-sends the subscription message on every (re)connect.
	if f.handlers.OnOpen != nil {
		f.handlers.OnOpen()
	}

	return nil
}

// Subscribe sends one raw subscription message over the open connection.
func (f *Feed) Subscribe(message []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	if conn == nil {
		return domain.NewNetworkError("subscribe", domain.ErrConnectionFailed)
	}

	return conn.WriteMessage(websocket.TextMessage, message)
}

func (f *Feed) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(gdaxReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Warn("feed read error", slog.Any("error", err))
			}
			f.closeConnection()
			return
		}

		f.handleMessage(message)
	}
}

// handleMessage dispatches one wire message by its type tag. Unknown types
// are informational and ignored.
func (f *Feed) handleMessage(message []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		f.logger.Debug("feed message parse error", slog.Any("error", err))
		return
	}

	switch envelope.Type {
	case "done":
		if f.handlers.OnOrderDismissed == nil {
			return
		}
		var msg doneMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			f.logger.Error("failed to deserialize the done message", slog.Any("error", err))
			return
		}
		f.handlers.OnOrderDismissed(domain.OrderDismissal{
			OrderID:   msg.OrderID,
			Reason:    msg.Reason,
			Timestamp: msg.Time,
		})

	case "match":
		if f.handlers.OnTrade == nil {
			return
		}
		var msg matchMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			f.logger.Error("failed to deserialize the match message", slog.Any("error", err))
			return
		}
		f.handlers.OnTrade(domain.Trade{
			MakerOrderID: msg.MakerOrderID,
			TakerOrderID: msg.TakerOrderID,
			Price:        msg.Price,
			Size:         msg.Size,
			Timestamp:    msg.Time,
		})

	case "open":
		f.logger.Debug("an order has been placed on the book")

	case "subscriptions":
		var msg subscriptionsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			f.logger.Error("failed to deserialize the subscriptions message", slog.Any("error", err))
			return
		}
		f.logger.Info("feed subscriptions confirmed", slog.Int("channels", len(msg.Channels)))

	default:
		// Informational messages (received, heartbeat, ...) are skipped.
	}
}

func (f *Feed) closeConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

// Close tears down the connection loop. Safe to call on a closed feed.
func (f *Feed) Close() {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return
	}
	f.open = false
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	f.closeConnection()
	f.wg.Wait()
	f.logger.Info("feed disconnected")
}
