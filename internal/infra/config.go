package infra

import (
	"fmt"
	"os"
	"strings"

	"crypto_arbiter/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// SubscriptionConfig is the yaml notation for one quote subscription.
type SubscriptionConfig struct {
	Instrument string `yaml:"instrument"` // Dash notation, e.g. "BTC-USD"
	Side       string `yaml:"side"`       // "bid", "ask" or "both" (default)
}

// ExchangeConfig holds the per-exchange connection and rate-limit settings.
type ExchangeConfig struct {
	RestURL              string               `yaml:"rest_url"`
	WSURL                string               `yaml:"ws_url"`
	APIKey               string               `yaml:"api_key"`
	APISecret            string               `yaml:"api_secret"`
	Passphrase           string               `yaml:"passphrase"`
	MaxRequestsPerMinute int                  `yaml:"max_requests_per_minute"`
	SlippagePct          decimal.Decimal      `yaml:"slippage_pct"` // Marketable-limit price allowance
	Subscriptions        []SubscriptionConfig `yaml:"subscriptions"`
}

// Config holds the whole application configuration. Secrets may be
// overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`

	DefaultSubscriptions []SubscriptionConfig `yaml:"default_subscriptions"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one exchange is required")
	}

	for name, ex := range c.Exchanges {
		if ex.RestURL == "" || !strings.HasPrefix(ex.RestURL, "http") {
			return fmt.Errorf("invalid %s REST URL: %s", name, ex.RestURL)
		}
		if ex.WSURL != "" && !strings.HasPrefix(ex.WSURL, "ws://") && !strings.HasPrefix(ex.WSURL, "wss://") {
			return fmt.Errorf("invalid %s WS URL: %s", name, ex.WSURL)
		}
		if ex.MaxRequestsPerMinute <= 0 {
			return fmt.Errorf("%s max_requests_per_minute must be positive", name)
		}
		if ex.SlippagePct.IsNegative() {
			return fmt.Errorf("%s slippage_pct must not be negative", name)
		}
		for _, s := range append(append([]SubscriptionConfig{}, ex.Subscriptions...), c.DefaultSubscriptions...) {
			if _, err := s.Parse(); err != nil {
				return fmt.Errorf("%s subscription: %w", name, err)
			}
		}
	}

	return nil
}

// Parse converts the yaml notation into a domain subscription.
func (s SubscriptionConfig) Parse() (domain.Subscription, error) {
	instrument, err := domain.ParseInstrument(s.Instrument)
	if err != nil {
		return domain.Subscription{}, err
	}
	side, err := domain.ParseSide(s.Side)
	if err != nil {
		return domain.Subscription{}, err
	}
	return domain.Subscription{Instrument: instrument, Sides: side}, nil
}

// SubscriptionsFor merges an exchange's own subscriptions with the defaults,
// de-duplicated by value, own subscriptions first.
func (c *Config) SubscriptionsFor(exchange string) ([]domain.Subscription, error) {
	ex, ok := c.Exchanges[exchange]
	if !ok {
		return nil, fmt.Errorf("unknown exchange: %s", exchange)
	}

	var result []domain.Subscription
	seen := make(map[domain.Subscription]bool)

	for _, sc := range append(append([]SubscriptionConfig{}, ex.Subscriptions...), c.DefaultSubscriptions...) {
		sub, err := sc.Parse()
		if err != nil {
			return nil, err
		}
		if !seen[sub] {
			seen[sub] = true
			result = append(result, sub)
		}
	}

	return result, nil
}

// overrideWithEnv overrides secrets from CRYPTO_ARBITER_<EXCHANGE>_* variables.
func overrideWithEnv(cfg *Config) {
	for name, ex := range cfg.Exchanges {
		prefix := "CRYPTO_ARBITER_" + strings.ToUpper(name) + "_"
		if key := os.Getenv(prefix + "KEY"); key != "" {
			ex.APIKey = key
		}
		if secret := os.Getenv(prefix + "SECRET"); secret != "" {
			ex.APISecret = secret
		}
		if pass := os.Getenv(prefix + "PASSPHRASE"); pass != "" {
			ex.Passphrase = pass
		}
		cfg.Exchanges[name] = ex
	}
}
