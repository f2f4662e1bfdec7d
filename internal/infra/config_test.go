package infra

import (
	"os"
	"path/filepath"
	"testing"

	"crypto_arbiter/internal/domain"
)

const testConfigYAML = `
app:
  name: crypto-arbiter
  version: test
exchanges:
  gdax:
    rest_url: https://api.gdax.com
    ws_url: wss://ws-feed.gdax.com
    max_requests_per_minute: 60
    subscriptions:
      - instrument: BTC-USD
        side: both
  poloniex:
    rest_url: https://poloniex.com/public
    max_requests_per_minute: 30
    slippage_pct: 0.1
    subscriptions:
      - instrument: ETH-BTC
        side: ask
default_subscriptions:
  - instrument: BTC-USD
    side: both
  - instrument: LTC-USD
    side: bid
logging:
  level: debug
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Exchanges) != 2 {
		t.Fatalf("Expected 2 exchanges, got %d", len(cfg.Exchanges))
	}
	if cfg.Exchanges["gdax"].MaxRequestsPerMinute != 60 {
		t.Errorf("Unexpected gdax rate limit: %d", cfg.Exchanges["gdax"].MaxRequestsPerMinute)
	}
	if cfg.Exchanges["poloniex"].SlippagePct.String() != "0.1" {
		t.Errorf("Unexpected slippage: %s", cfg.Exchanges["poloniex"].SlippagePct)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != domain.ErrConfigNotFound {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfig_SubscriptionsFor_MergesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// gdax declares BTC-USD/both itself and inherits it from defaults too;
	// the merge must de-duplicate.
	subs, err := cfg.SubscriptionsFor("gdax")
	if err != nil {
		t.Fatalf("SubscriptionsFor failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("Expected 2 subscriptions after de-dup, got %d: %v", len(subs), subs)
	}
	if subs[0].Instrument.String() != "BTC-USD" || subs[0].Sides != domain.SideBoth {
		t.Errorf("Unexpected first subscription: %v", subs[0])
	}
	if subs[1].Instrument.String() != "LTC-USD" || subs[1].Sides != domain.SideBid {
		t.Errorf("Unexpected second subscription: %v", subs[1])
	}

	// poloniex gets its own plus both defaults.
	subs, err = cfg.SubscriptionsFor("poloniex")
	if err != nil {
		t.Fatalf("SubscriptionsFor failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("Expected 3 subscriptions, got %d", len(subs))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no exchanges", func(c *Config) { c.Exchanges = nil }, true},
		{"bad rest url", func(c *Config) {
			ex := c.Exchanges["gdax"]
			ex.RestURL = "ftp://nope"
			c.Exchanges["gdax"] = ex
		}, true},
		{"bad ws url", func(c *Config) {
			ex := c.Exchanges["gdax"]
			ex.WSURL = "http://nope"
			c.Exchanges["gdax"] = ex
		}, true},
		{"zero rate limit", func(c *Config) {
			ex := c.Exchanges["gdax"]
			ex.MaxRequestsPerMinute = 0
			c.Exchanges["gdax"] = ex
		}, true},
		{"bad subscription", func(c *Config) {
			c.DefaultSubscriptions = []SubscriptionConfig{{Instrument: "BTCUSD"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOverrideWithEnv(t *testing.T) {
	t.Setenv("CRYPTO_ARBITER_GDAX_KEY", "env-key")
	t.Setenv("CRYPTO_ARBITER_GDAX_SECRET", "env-secret")

	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Exchanges["gdax"].APIKey != "env-key" {
		t.Errorf("Expected env override for api key, got %q", cfg.Exchanges["gdax"].APIKey)
	}
	if cfg.Exchanges["gdax"].APISecret != "env-secret" {
		t.Errorf("Expected env override for api secret, got %q", cfg.Exchanges["gdax"].APISecret)
	}
}
