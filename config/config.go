// Package config loads the dashboard configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP surface
	Port       string `env:"PORT" envDefault:"8080"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`
	StaticDir  string `env:"STATIC_DIR" envDefault:"./web/static"`

	// Exchange API. Both credentials empty means demo mode; the dashboard
	// can also receive credentials later through the settings endpoint.
	BinanceAPIKey    string `env:"BINANCE_API_KEY"`
	BinanceAPISecret string `env:"BINANCE_API_SECRET"`
	BinanceTestnet   bool   `env:"BINANCE_TESTNET" envDefault:"false"`
	BinanceBaseURL   string `env:"BINANCE_BASE_URL"` // explicit override, wins over the testnet flag

	// Exchange client tuning
	RecvWindow     int64         `env:"BINANCE_RECV_WINDOW" envDefault:"5000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"8"`

	// Dashboard behaviour
	TradingPairs    []string      `env:"TRADING_PAIRS" envSeparator:"," envDefault:"BTC/USDT,ETH/USDT,SOL/USDT,BNB/USDT"`
	HistoryPageSize int           `env:"HISTORY_PAGE_SIZE" envDefault:"20"`
	QuoteCacheTTL   time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"3s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads the configuration from the environment. A .env file is applied
// first when present; real environment variables win over it.
func Load() (*Config, error) {
	// Missing .env is fine, plain env vars are enough.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	var errs []string
	if cfg.Port == "" {
		errs = append(errs, "PORT must not be empty")
	}
	if (cfg.BinanceAPIKey == "") != (cfg.BinanceAPISecret == "") {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set together")
	}
	if cfg.RecvWindow <= 0 {
		errs = append(errs, "BINANCE_RECV_WINDOW must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT must be positive")
	}
	if cfg.RateLimitRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if len(cfg.TradingPairs) == 0 {
		errs = append(errs, "TRADING_PAIRS must name at least one pair")
	}
	if cfg.HistoryPageSize <= 0 {
		errs = append(errs, "HISTORY_PAGE_SIZE must be positive")
	}
	if cfg.QuoteCacheTTL <= 0 {
		errs = append(errs, "QUOTE_CACHE_TTL must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
