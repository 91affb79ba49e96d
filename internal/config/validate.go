package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Polygon.APIKey == "" {
		return errors.New("polygon.api_key is required")
	}
	if c.Polygon.BaseURL == "" {
		return errors.New("polygon.base_url is required")
	}
	if c.Polygon.DefaultTicker == "" {
		return errors.New("polygon.default_ticker is required")
	}
	if c.Frankfurter.BaseURL == "" {
		return errors.New("frankfurter.base_url is required")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Database.Timeout < 0 {
		return errors.New("database.timeout must be >= 0")
	}

	if len(c.Pipeline.TargetCurrency) != 3 {
		return fmt.Errorf("pipeline.target_currency must be a 3-letter code, got %q", c.Pipeline.TargetCurrency)
	}
	if c.Pipeline.LookbackDays < 1 {
		return errors.New("pipeline.lookback_days must be >= 1")
	}
	if _, _, err := c.Pipeline.Range(time.Now()); err != nil {
		return err
	}

	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit must be >= 0")
	}
	if c.Schedule.Retries < 0 {
		return errors.New("schedule.retries must be >= 0")
	}
	return nil
}
