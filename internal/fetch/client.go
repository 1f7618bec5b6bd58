// Package fetch issues single outbound page requests, either as a plain HTTP
// GET or as a headless-browser navigation for script-rendered pages.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/metrics"
)

// ClientConfig controls plain-fetch behavior.
type ClientConfig struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Backoff grows linearly: attempt N sleeps N*Backoff before retrying.
	Backoff time.Duration
}

// Client performs plain HTTP fetches with retry and linear backoff.
type Client struct {
	cfg           ClientConfig
	logger        *zap.Logger
	baseCollector *colly.Collector
}

// NewClient builds a Client around a reusable base collector.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())

	return &Client{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}
}

// Fetch issues an HTTP GET and returns the document body as text. It retries
// up to MaxRetries times with linearly increasing backoff and wraps the last
// cause in a *FetchError once attempts are exhausted.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	attempts := c.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		html, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			metrics.ObserveFetch("plain", "ok", time.Since(start))
			return html, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			c.logger.Debug("plain fetch retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-time.After(time.Duration(attempt) * c.cfg.Backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	metrics.ObserveFetch("plain", "error", time.Since(start))
	return "", &FetchError{URL: rawURL, Attempts: attempts, Cause: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := c.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Referer", refererFor(rawURL))
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("plain fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return "", fmt.Errorf("response failed: %w", fetchErr)
		}
		if status >= http.StatusBadRequest {
			return "", fmt.Errorf("http status %d", status)
		}
		return string(body), nil
	}
}

// refererFor mirrors what a browser arriving from the origin's front page
// would send; some origins reject bare referers.
func refererFor(rawURL string) string {
	u := strings.ToLower(rawURL)
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return u[:i+3] + rest[:j] + "/"
		}
	}
	return rawURL
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
