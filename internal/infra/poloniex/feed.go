package poloniex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	poloniexMaxRetries  = 10
	poloniexBaseDelay   = 1 * time.Second
	poloniexMaxDelay    = 60 * time.Second
	poloniexReadTimeout = 60 * time.Second
	poloniexDialTimeout = 10 * time.Second
)

// Feed is the websocket push feed. The wire format is compact positional
// arrays over a multiplexed channel: the first element is a channel id,
// market frames carry a sequence number and a list of directives tagged
// "i"/"o"/"t". An unrecognized directive tag is a hard protocol error.
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

	channelMu sync.RWMutex
	channels  map[int]domain.Instrument
}

// NewFeed creates a feed for the given websocket endpoint.
func NewFeed(wsURL string) *Feed {
	channels := make(map[int]domain.Instrument, len(tradingChannels))
	for pair, id := range tradingChannels {
		if instrument, ok := instrumentFromPair(pair); ok {
			channels[id] = instrument
		}
	}
	return &Feed{
		url:      wsURL,
		logger:   slog.Default().With("module", "poloniex_feed"),
		channels: channels,
	}
}

// instrumentFromPair converts the QUOTE_BASE pair notation back to an
// instrument.
func instrumentFromPair(pair string) (domain.Instrument, bool) {
	parts := strings.Split(pair, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Instrument{}, false
	}
	return domain.NewInstrument(parts[1], parts[0]), true
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
			if retryCount > poloniexMaxRetries {
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

func calculateBackoff(retryCount int) time.Duration {
	delay := poloniexBaseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > poloniexMaxDelay {
		delay = poloniexMaxDelay
	}
	return delay
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: poloniexDialTimeout}

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

	if f.handlers.OnOpen != nil {
		f.handlers.OnOpen()
	}

	return nil
}

// Subscribe sends one raw channel command over the open connection.
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

		conn.SetReadDeadline(time.Now().Add(poloniexReadTimeout))

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

// handleMessage parses one frame. Protocol violations are fatal to this
// frame's parsing but never to the read loop.
func (f *Feed) handleMessage(message []byte) {
	if err := f.parseFrame(message); err != nil {
		var pe *domain.ProtocolError
		if errors.As(err, &pe) {
			f.logger.Error("feed protocol violation", slog.Any("error", err))
			return
		}
		f.logger.Debug("feed message parse error", slog.Any("error", err))
	}
}

func (f *Feed) parseFrame(message []byte) error {
	var memo []json.RawMessage
	if err := json.Unmarshal(message, &memo); err != nil {
		return err
	}
	if len(memo) == 0 {
		return fmt.Errorf("empty frame")
	}

	var channelID int
	if err := json.Unmarshal(memo[0], &channelID); err != nil {
		return err
	}

	switch channelID {
	case trollboxChannelID:
		f.logger.Debug("trollbox message received")
		return nil
	case tickerChannelID:
		f.logger.Debug("ticker message received")
		return nil
	case statsChannelID:
		f.logger.Debug("stats message received")
		return nil
	case heartbeatChannelID:
		f.logger.Debug("heartbeat received")
		return nil
	}

	// Market messages are being received.
	if len(memo) < 3 {
		return fmt.Errorf("truncated market frame: %d elements", len(memo))
	}

	var sequence int64
	if err := json.Unmarshal(memo[1], &sequence); err != nil {
		return err
	}

	var directives []json.RawMessage
	if err := json.Unmarshal(memo[2], &directives); err != nil {
		return err
	}

	for _, directive := range directives {
		if err := f.parseDirective(channelID, directive); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) parseDirective(channelID int, raw json.RawMessage) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("empty directive")
	}

	var tag string
	if err := json.Unmarshal(fields[0], &tag); err != nil {
		return err
	}

	switch tag {
	case "i":
		// Initial snapshot; carries the pair, which pins the channel mapping.
		if len(fields) < 2 {
			return fmt.Errorf("truncated snapshot directive")
		}
		var snap struct {
			CurrencyPair string `json:"currencyPair"`
		}
		if err := json.Unmarshal(fields[1], &snap); err != nil {
			return err
		}
		if instrument, ok := instrumentFromPair(snap.CurrencyPair); ok {
			f.channelMu.Lock()
			f.channels[channelID] = instrument
			f.channelMu.Unlock()
		}
		f.logger.Debug("order book snapshot received", slog.String("pair", snap.CurrencyPair))
		return nil

	case "o":
		if len(fields) < 4 {
			return fmt.Errorf("truncated order directive")
		}
		order, err := f.parseBookUpdate(channelID, fields)
		if err != nil {
			return err
		}
		if f.handlers.OnOrderbookUpdate != nil {
			f.handlers.OnOrderbookUpdate(order)
		}
		return nil

	case "t":
		if len(fields) < 5 {
			return fmt.Errorf("truncated trade directive")
		}
		trade, err := parseTrade(fields)
		if err != nil {
			return err
		}
		if f.handlers.OnTrade != nil {
			f.handlers.OnTrade(trade)
		}
		return nil
	}

	return &domain.ProtocolError{
		Exchange: "poloniex",
		Detail:   fmt.Sprintf("unsupported message type: %q", tag),
	}
}

// parseBookUpdate maps ["o", side, price, size]: side 0 is ask, 1 is bid.
func (f *Feed) parseBookUpdate(channelID int, fields []json.RawMessage) (domain.ExchangeOrder, error) {
	var side int
	if err := json.Unmarshal(fields[1], &side); err != nil {
		return domain.ExchangeOrder{}, err
	}

	order := domain.ExchangeOrder{Instrument: f.instrumentFor(channelID)}
	if side == 0 {
		order.Type = domain.OrderTypeSell
	} else {
		order.Type = domain.OrderTypeBuy
	}

	if err := json.Unmarshal(fields[2], &order.Price); err != nil {
		return domain.ExchangeOrder{}, err
	}
	if err := json.Unmarshal(fields[3], &order.Size); err != nil {
		return domain.ExchangeOrder{}, err
	}
	return order, nil
}

// parseTrade maps ["t", tradeID, side, price, size, globalTradeID]. The
// trade id identifies the aggressing side; the exchange exposes no maker id.
func parseTrade(fields []json.RawMessage) (domain.Trade, error) {
	trade := domain.Trade{
		TakerOrderID: rawToString(fields[1]),
		Timestamp:    time.Now().UTC(),
	}

	if err := json.Unmarshal(fields[3], &trade.Price); err != nil {
		return domain.Trade{}, err
	}
	if err := json.Unmarshal(fields[4], &trade.Size); err != nil {
		return domain.Trade{}, err
	}
	return trade, nil
}

// rawToString extracts a positional id that may arrive quoted or bare.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func (f *Feed) instrumentFor(channelID int) domain.Instrument {
	f.channelMu.RLock()
	defer f.channelMu.RUnlock()
	return f.channels[channelID]
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
