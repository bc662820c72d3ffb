package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ConfigError reports invalid CLI or timezone input. It is always
// raised before any network activity.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// StateTZ is a fixed timezone offset for one two-letter state code.
// Offsets are standard time only; the USNO year table does not apply
// DST transitions, so a run uses a single offset throughout.
type StateTZ struct {
	TZHours float64
	TZSign  int
	TZLabel bool
}

// stateTZTable maps demo state codes to fixed UTC offsets. TZSign -1
// means west of Greenwich (UTC minus).
var stateTZTable = map[string]StateTZ{
	"AL": {TZHours: 6.0, TZSign: -1, TZLabel: true}, // CST fixed (UTC-6)
	"AZ": {TZHours: 7.0, TZSign: -1, TZLabel: true},
	"CA": {TZHours: 8.0, TZSign: -1, TZLabel: true},
	"FL": {TZHours: 5.0, TZSign: -1, TZLabel: true},
	"GA": {TZHours: 5.0, TZSign: -1, TZLabel: true},
	"NY": {TZHours: 5.0, TZSign: -1, TZLabel: true},
	"TX": {TZHours: 6.0, TZSign: -1, TZLabel: true},
}

// Config holds aggregator configuration.
type Config struct {
	BaseURL         string
	StartYear       int
	EndYear         int
	TZHours         float64
	TZSign          int
	TZLabel         bool
	State           string
	RequestDelay    time.Duration
	Timeout         time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
	MinDayRows      int
	PageCacheSize   int
	OutputFile      string
	OutputFormat    string // csv, json, or dual
	UserAgent       string
	MetricsAddr     string
	Debug           bool
	Verbose         bool
}

// DefaultConfig returns conservative defaults for the USNO year table.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://aa.usno.navy.mil/calculated/moon/fraction",
		StartYear:       2012,
		EndYear:         2024,
		TZHours:         0.0,
		TZSign:          -1,
		TZLabel:         false,
		RequestDelay:    150 * time.Millisecond,
		Timeout:         30 * time.Second,
		MaxAttempts:     5,
		RetryBackoff:    1 * time.Second,
		RetryBackoffMax: 16 * time.Second,
		MinDayRows:      28,
		PageCacheSize:   32,
		OutputFile:      "output/usno_moon_monthly.csv",
		OutputFormat:    "csv",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:         false,
	}
}

// ApplyState resolves a two-letter state code through the built-in
// fixed-offset table and copies its timezone settings onto cfg.
func (c *Config) ApplyState(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	tz, ok := stateTZTable[code]
	if !ok {
		return &ConfigError{Field: "state", Reason: fmt.Sprintf("state %q not in built-in timezone table; pass -tz-hours/-tz-sign instead", code)}
	}
	c.State = code
	c.TZHours = tz.TZHours
	c.TZSign = tz.TZSign
	c.TZLabel = tz.TZLabel
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &ConfigError{Field: "base URL", Reason: "cannot be empty"}
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ConfigError{Field: "base URL", Reason: err.Error()}
	}
	if parsedURL.Host == "" {
		return &ConfigError{Field: "base URL", Reason: "must include a host"}
	}

	if c.EndYear < c.StartYear {
		return &ConfigError{Field: "end year", Reason: fmt.Sprintf("end year %d must be >= start year %d", c.EndYear, c.StartYear)}
	}
	if c.TZSign != -1 && c.TZSign != 1 {
		return &ConfigError{Field: "tz sign", Reason: "must be -1 (UTC-) or +1 (UTC+)"}
	}
	if c.TZHours < 0 {
		return &ConfigError{Field: "tz hours", Reason: "must be a non-negative magnitude"}
	}
	if c.RequestDelay < 0 {
		return &ConfigError{Field: "request delay", Reason: "cannot be negative"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	if c.MaxAttempts <= 0 {
		return &ConfigError{Field: "max attempts", Reason: "must be positive"}
	}
	if c.RetryBackoff <= 0 {
		return &ConfigError{Field: "retry backoff", Reason: "must be positive"}
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return &ConfigError{Field: "retry backoff", Reason: fmt.Sprintf("backoff (%s) cannot exceed backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)}
	}
	if c.MinDayRows <= 0 {
		return &ConfigError{Field: "min day rows", Reason: "must be positive"}
	}
	if c.PageCacheSize <= 0 {
		return &ConfigError{Field: "page cache size", Reason: "must be positive"}
	}
	if c.OutputFile == "" {
		return &ConfigError{Field: "output file", Reason: "cannot be empty"}
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return &ConfigError{Field: "output format", Reason: "must be csv, json, or dual"}
	}
	if c.UserAgent == "" {
		return &ConfigError{Field: "user agent", Reason: "cannot be empty"}
	}

	return nil
}
