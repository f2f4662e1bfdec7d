package gdax

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crypto_arbiter/internal/domain"
	"crypto_arbiter/internal/infra"

	"github.com/go-resty/resty/v2"
)

// Client is the public REST API client (Boundary Layer). Only unauthenticated
// market-data endpoints live here; order placement goes through a Dealer.
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
		logger: slog.Default().With("module", "gdax_client"),
	}
}

// GetOrderBook downloads the level-2 order book for one product and returns
// the raw response body.
func (c *Client) GetOrderBook(ctx context.Context, instrument domain.Instrument) (string, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("level", "2").
		Get("/products/" + instrument.String() + "/book")
	if err != nil {
		return "", domain.NewNetworkError("fetch order book", err)
	}
	if resp.IsError() {
		return "", domain.NewNetworkError("fetch order book", fmt.Errorf("unexpected status %s", resp.Status()))
	}
	return resp.String(), nil
}
