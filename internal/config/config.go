package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Polygon     PolygonConfig     `yaml:"polygon"`
	Frankfurter FrankfurterConfig `yaml:"frankfurter"`
	Database    DatabaseConfig    `yaml:"database"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	HTTP        HTTPConfig        `yaml:"http"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Proxy       string            `yaml:"proxy"`
}

// PolygonConfig configures the equities provider.
type PolygonConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	DefaultTicker string `yaml:"default_ticker"`
}

// FrankfurterConfig configures the FX provider.
type FrankfurterConfig struct {
	BaseURL        string   `yaml:"base_url"`
	DefaultBase    string   `yaml:"default_base"`
	DefaultSymbols []string `yaml:"default_symbols"`
}

// DatabaseConfig selects the warehouse backend. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver     string        `yaml:"driver"`
	DSN        string        `yaml:"dsn"`
	Timeout    time.Duration `yaml:"timeout"`
	SkipSchema bool          `yaml:"skip_schema"`
}

// PipelineConfig holds the default run parameters. Empty dates are derived
// from LookbackDays relative to the run time.
type PipelineConfig struct {
	TargetCurrency string `yaml:"target_currency"`
	StartDate      string `yaml:"default_start_date"`
	EndDate        string `yaml:"default_end_date"`
	LookbackDays   int    `yaml:"lookback_days"`
}

// HTTPConfig tunes the outbound client shared by both extractors.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// ScheduleConfig drives the cron mode.
type ScheduleConfig struct {
	Cron       string        `yaml:"cron"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// TelegramConfig enables run reports when both token and chat id are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIBase  string `yaml:"api_base"`
}

// Enabled reports whether run reports should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads config from a YAML file, expands ${VAR} references, applies
// environment variable overrides and fills in defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Polygon.APIKey, "POLYGON_API_KEY")
	setString(&c.Polygon.BaseURL, "POLYGON_BASE_URL")
	setString(&c.Polygon.DefaultTicker, "ETL_TICKER")
	setString(&c.Frankfurter.BaseURL, "FRANKFURTER_BASE_URL")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Pipeline.TargetCurrency, "ETL_TARGET_CURRENCY")
	setString(&c.Pipeline.StartDate, "ETL_START_DATE")
	setString(&c.Pipeline.EndDate, "ETL_END_DATE")
	setString(&c.Schedule.Cron, "ETL_CRON")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Proxy, "HTTPS_PROXY")

	if v := os.Getenv("FRANKFURTER_SYMBOLS"); v != "" {
		c.Frankfurter.DefaultSymbols = splitList(v)
	}
	if v := os.Getenv("ETL_RUN_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Schedule.RunOnStart = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Range resolves the configured date window. now supplies the reference day
// when a bound is left empty.
func (p PipelineConfig) Range(now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if p.EndDate != "" {
		if end, err = parseDate(p.EndDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("pipeline.default_end_date: %w", err)
		}
	} else {
		u := now.UTC()
		end = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}

	if p.StartDate != "" {
		if start, err = parseDate(p.StartDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("pipeline.default_start_date: %w", err)
		}
	} else {
		days := p.LookbackDays
		if days < 1 {
			days = 1
		}
		start = end.AddDate(0, 0, -(days - 1))
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s is after end date %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	return start, end, nil
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
