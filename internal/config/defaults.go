package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultPolygonBaseURL     = "https://api.polygon.io/v2"
	DefaultTicker             = "AAPL"
	DefaultFrankfurterBaseURL = "https://api.frankfurter.app"
	DefaultFxBase             = "USD"
	DefaultDriver             = "sqlite"
	DefaultSQLiteDSN          = "data/finance_etl.db"
	DefaultDBTimeout          = 30 * time.Second
	DefaultTargetCurrency     = "EUR"
	DefaultLookbackDays       = 5
	DefaultHTTPTimeout        = 30 * time.Second
	DefaultRateLimit          = 5.0
	DefaultBurst              = 1
	DefaultCron               = "0 0 6 * * *"
	DefaultRetries            = 1
	DefaultRetryDelay         = 5 * time.Minute
	DefaultTelegramAPIBase    = "https://api.telegram.org"
)

// DefaultSymbols is used when frankfurter.default_symbols is empty.
var DefaultSymbols = []string{"EUR", "GBP", "JPY"}

func (c *Config) applyDefaults() {
	// Providers
	if c.Polygon.BaseURL == "" {
		c.Polygon.BaseURL = DefaultPolygonBaseURL
	}
	if c.Polygon.DefaultTicker == "" {
		c.Polygon.DefaultTicker = DefaultTicker
	}
	c.Polygon.DefaultTicker = strings.ToUpper(c.Polygon.DefaultTicker)
	if c.Frankfurter.BaseURL == "" {
		c.Frankfurter.BaseURL = DefaultFrankfurterBaseURL
	}
	if c.Frankfurter.DefaultBase == "" {
		c.Frankfurter.DefaultBase = DefaultFxBase
	}
	if len(c.Frankfurter.DefaultSymbols) == 0 {
		c.Frankfurter.DefaultSymbols = append([]string(nil), DefaultSymbols...)
	}

	// Database
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.DSN == "" && c.Database.Driver == DefaultDriver {
		c.Database.DSN = DefaultSQLiteDSN
	}
	if c.Database.Timeout == 0 {
		c.Database.Timeout = DefaultDBTimeout
	}

	// Pipeline
	if c.Pipeline.TargetCurrency == "" {
		c.Pipeline.TargetCurrency = DefaultTargetCurrency
	}
	c.Pipeline.TargetCurrency = strings.ToUpper(c.Pipeline.TargetCurrency)
	if c.Pipeline.LookbackDays == 0 {
		c.Pipeline.LookbackDays = DefaultLookbackDays
	}

	// HTTP
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = DefaultRateLimit
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = DefaultBurst
	}

	// Schedule
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCron
	}
	if c.Schedule.Retries == 0 {
		c.Schedule.Retries = DefaultRetries
	}
	if c.Schedule.RetryDelay == 0 {
		c.Schedule.RetryDelay = DefaultRetryDelay
	}

	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = DefaultTelegramAPIBase
	}
}
