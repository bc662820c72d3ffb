// Package fetcher retrieves USNO "Fraction of the Moon Illuminated"
// year pages, one HTTP request per calendar year, with bounded retry
// and exponential backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/NathanPalaiologos/usno-moon-monthly/config"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// Fetcher wraps a synchronous colly collector and the retry policy
// for the USNO year-table endpoint.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	policy    BackoffPolicy
	clock     clockwork.Clock
	cache     *lru.Cache[int, string]
	Metrics   *Metrics

	mu   sync.Mutex
	body []byte
}

// New builds a fetcher configured from cfg. The clock is used for
// backoff sleeps; pass nil for the real clock.
func New(cfg *config.Config, clock clockwork.Clock) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		// Retries revisit the same year URL.
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	cache, err := lru.New[int, string](cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	f := &Fetcher{
		cfg:       cfg,
		collector: collector,
		policy: BackoffPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Base:        cfg.RetryBackoff,
			Cap:         cfg.RetryBackoffMax,
		},
		clock:   clock,
		cache:   cache,
		Metrics: NewMetrics(),
	}

	collector.OnResponse(func(r *colly.Response) {
		f.mu.Lock()
		f.body = r.Body
		f.mu.Unlock()
	})

	return f, nil
}

// FetchYear returns the raw page for one calendar year. Transient
// failures are retried up to the attempt budget with exponential
// backoff; exhaustion surfaces a FetchError, which callers treat as
// fatal for the whole run. Pages already fetched in this process are
// served from the cache.
func (f *Fetcher) FetchYear(ctx context.Context, year int) (string, error) {
	if page, ok := f.cache.Get(year); ok {
		f.Metrics.IncCacheHit()
		return page, nil
	}

	target := f.yearURL(year)
	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &FetchError{Year: year, Err: err}
		}

		f.Metrics.IncRequest("started")
		start := f.clock.Now()
		page, err := f.visit(target)
		f.Metrics.ObserveDuration(f.clock.Since(start))
		if err == nil {
			f.Metrics.IncRequest("succeeded")
			f.cache.Add(year, page)
			return page, nil
		}

		lastErr = err
		f.Metrics.IncError()
		slog.Warn("year fetch failed",
			slog.Int("year", year),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt == f.policy.MaxAttempts {
			break
		}
		f.Metrics.IncRetries()
		f.clock.Sleep(f.policy.Delay(attempt))
	}

	return "", &FetchError{Year: year, Err: lastErr}
}

func (f *Fetcher) visit(target string) (string, error) {
	f.mu.Lock()
	f.body = nil
	f.mu.Unlock()

	if err := f.collector.Visit(target); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.body) == 0 {
		return "", errors.New("empty response body")
	}
	return string(f.body), nil
}

// yearURL mirrors the USNO "Get Data" form query for one year.
func (f *Fetcher) yearURL(year int) string {
	params := url.Values{
		"submit":   {"Get Data"},
		"task":     {"00"}, // at midnight
		"tz":       {fmt.Sprintf("%.2f", f.cfg.TZHours)},
		"tz_label": {strconv.FormatBool(f.cfg.TZLabel)},
		"tz_sign":  {strconv.Itoa(f.cfg.TZSign)},
		"year":     {strconv.Itoa(year)},
	}
	return f.cfg.BaseURL + "?" + params.Encode()
}
