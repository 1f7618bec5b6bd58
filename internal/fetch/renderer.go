package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openneta/netawatch/internal/browser"
	"github.com/openneta/netawatch/internal/metrics"
)

// RendererConfig controls rendered-fetch behavior.
type RendererConfig struct {
	NavTimeout time.Duration
	// MarkerTimeout bounds the wait for each content marker individually;
	// a marker that never appears is tolerated, not fatal.
	MarkerTimeout time.Duration
	SettleDelay   time.Duration
	DomainQPS     float64
}

// Renderer performs headless-browser fetches using handles borrowed from the
// pool. Handles are returned on every exit path.
type Renderer struct {
	cfg            RendererConfig
	pool           *browser.Pool
	logger         *zap.Logger
	domainLimiters sync.Map
}

// NewRenderer builds a Renderer on top of a browser pool.
func NewRenderer(cfg RendererConfig, pool *browser.Pool, logger *zap.Logger) *Renderer {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.MarkerTimeout <= 0 {
		cfg.MarkerTimeout = 15 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	return &Renderer{
		cfg:    cfg,
		pool:   pool,
		logger: logger,
	}
}

// Fetch navigates to the URL with a pooled browser, waits for the given
// content markers (each bounded and tolerated individually), applies the
// settle delay and returns the fully rendered document.
func (r *Renderer) Fetch(ctx context.Context, rawURL string, markers []string) (string, error) {
	start := time.Now()

	if err := r.waitDomainBudget(ctx, rawURL); err != nil {
		return "", fmt.Errorf("render rate limit: %w", err)
	}

	handle, err := r.pool.Acquire(ctx)
	if err != nil {
		metrics.ObserveFetch("rendered", "pool_timeout", time.Since(start))
		return "", err
	}
	defer r.pool.Release(handle)

	tabCtx, cancelTab := chromedp.NewContext(handle.Context())
	defer cancelTab()

	// fetchCtx mirrors the caller's cancellation onto the whole tab session,
	// navigation through capture, so a gone caller cannot keep the handle
	// busy through the marker waits.
	fetchCtx, cancelFetch := context.WithCancel(tabCtx)
	defer cancelFetch()
	stop := forwardCancel(ctx, cancelFetch)
	defer stop()

	navCtx, cancelNav := context.WithTimeout(fetchCtx, r.cfg.NavTimeout)
	defer cancelNav()

	var html string
	if err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         refererFor(rawURL),
		}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		metrics.ObserveFetch("rendered", "error", time.Since(start))
		return "", &FetchError{URL: rawURL, Attempts: 1, Cause: fmt.Errorf("navigate: %w", err)}
	}

	r.awaitMarkers(fetchCtx, rawURL, markers)

	captureCtx, cancelCapture := context.WithTimeout(fetchCtx, r.cfg.NavTimeout)
	defer cancelCapture()
	if err := chromedp.Run(captureCtx,
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		metrics.ObserveFetch("rendered", "error", time.Since(start))
		return "", &FetchError{URL: rawURL, Attempts: 1, Cause: fmt.Errorf("capture: %w", err)}
	}

	metrics.ObserveFetch("rendered", "ok", time.Since(start))
	return html, nil
}

// awaitMarkers waits for each marker with its own timeout. Absence of one
// marker does not abort the others; pages legitimately omit sections.
func (r *Renderer) awaitMarkers(ctx context.Context, rawURL string, markers []string) {
	for _, marker := range markers {
		if ctx.Err() != nil {
			return
		}
		waitCtx, cancel := context.WithTimeout(ctx, r.cfg.MarkerTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(marker, chromedp.ByQuery))
		cancel()
		if err != nil {
			r.logger.Debug("content marker missing",
				zap.String("url", rawURL),
				zap.String("marker", marker),
			)
		}
	}
}

func (r *Renderer) waitDomainBudget(ctx context.Context, rawURL string) error {
	if r.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := r.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(r.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
