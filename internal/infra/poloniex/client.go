package poloniex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/go-resty/resty/v2"
)

// Client is the public REST API client (Boundary Layer).
type Client struct {
	rc     *resty.Client
	logger *slog.Logger
}

// NewClient creates a new REST client for the configured endpoint.
func NewClient(cfg infra.ExchangeConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.RestURL).
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", infra.DefaultUserAgent)

	return &Client{
		rc:     rc,
		logger: slog.Default().With("module", "poloniex_client"),
	}
}

// pairNotation renders an instrument in the exchange's QUOTE_BASE notation,
// e.g. BTC-USDT becomes USDT_BTC.
func pairNotation(instrument domain.Instrument) string {
	return strings.ToUpper(instrument.Quote + "_" + instrument.Base)
}

// GetOrderBook downloads the order book for one pair and returns the raw
// response body.
func (c *Client) GetOrderBook(ctx context.Context, instrument domain.Instrument) (string, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"command":      "returnOrderBook",
			"currencyPair": pairNotation(instrument),
			"depth":        "20",
		}).
		Get("")
	if err != nil {
		return "", domain.NewNetworkError("fetch order book", err)
	}
	if resp.IsError() {
		return "", domain.NewNetworkError("fetch order book", fmt.Errorf("unexpected status %s", resp.Status()))
	}
	return resp.String(), nil
}
