// Package config loads traderd's environment-variable configuration,
// mirroring original_source's backend/config/settings.py field list.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-variable-sourced setting spec.md §6's
// Environment section names.
type Config struct {
	// Exchange (Kalshi-shaped)
	ExchangeBaseURL   string
	ExchangeAPIKeyID  string
	ExchangePrivateKeyPEM string
	ExchangeSocketURL string

	// Sports provider
	SportsBaseURL string
	SportsAPIKey  string

	// Odds provider (shares the sports auth model in this domain)
	OddsBaseURL string
	OddsAPIKey  string

	// Database
	DatabaseURL     string
	DatabaseService string

	// Application
	FrontendURL string
	LogLevel    string
	Environment string
	HTTPAddr    string

	// Poll intervals
	SportsPollInterval   time.Duration
	OddsPollInterval     time.Duration
	StrategyEvalInterval time.Duration
	PnLCalcInterval      time.Duration
}

// Load reads a .env file if present (ignoring its absence) and then
// environment variables, applying the same defaults
// backend/config/settings.py does.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is not an error

	cfg := &Config{
		ExchangeBaseURL:       getenv("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		ExchangeAPIKeyID:      os.Getenv("KALSHI_API_KEY"),
		ExchangePrivateKeyPEM: normalizePEM(os.Getenv("KALSHI_API_SECRET")),
		ExchangeSocketURL:     getenv("KALSHI_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),

		SportsBaseURL: getenv("BALLDONTLIE_API_URL", "https://api.balldontlie.io"),
		SportsAPIKey:  os.Getenv("BALLDONTLIE_API_KEY"),

		OddsBaseURL: getenv("ODDS_API_URL", "https://api.balldontlie.io"),
		OddsAPIKey:  getenv("ODDS_API_KEY", os.Getenv("BALLDONTLIE_API_KEY")),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DatabaseService: os.Getenv("DATABASE_SERVICE_KEY"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		SportsPollInterval:   getenvDuration("NBA_POLL_INTERVAL", 5*time.Second),
		OddsPollInterval:     getenvDuration("BETTING_ODDS_POLL_INTERVAL", 10*time.Second),
		StrategyEvalInterval: getenvDuration("STRATEGY_EVAL_INTERVAL", 2*time.Second),
		PnLCalcInterval:      getenvDuration("PNL_CALC_INTERVAL", 5*time.Second),
	}

	if cfg.ExchangeAPIKeyID == "" {
		return nil, fmt.Errorf("config: KALSHI_API_KEY is required")
	}
	if cfg.ExchangePrivateKeyPEM == "" {
		return nil, fmt.Errorf("config: KALSHI_API_SECRET is required")
	}
	if cfg.SportsAPIKey == "" {
		return nil, fmt.Errorf("config: BALLDONTLIE_API_KEY is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	return cfg, nil
}

// normalizePEM undoes literal "\n" escaping that environment variables
// commonly carry for multi-line PEM blocks.
func normalizePEM(raw string) string {
	return strings.ReplaceAll(raw, `\n`, "\n")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
