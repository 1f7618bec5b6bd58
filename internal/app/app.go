// Package app builds and owns the long-lived components of the service.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/breaker"
	"github.com/openneta/netawatch/internal/browser"
	"github.com/openneta/netawatch/internal/cache"
	"github.com/openneta/netawatch/internal/config"
	"github.com/openneta/netawatch/internal/fetch"
	"github.com/openneta/netawatch/internal/logging"
	"github.com/openneta/netawatch/internal/mediaproxy"
	"github.com/openneta/netawatch/internal/metrics"
	"github.com/openneta/netawatch/internal/resolve"
	"github.com/openneta/netawatch/internal/service"
)

// App holds the wired application graph. Components shut down in Close in
// reverse construction order.
type App struct {
	Cfg     config.Config
	Logger  *zap.Logger
	Pool    *browser.Pool
	Breaker *breaker.Breaker
	Cache   *cache.Coordinator
	Media   *mediaproxy.Store
	Service *service.Service
}

// New constructs the full component graph from configuration.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	metrics.Init()

	pool, err := browser.New(browser.Config{
		MaxBrowsers:    cfg.Headless.MaxBrowsers,
		AcquireTimeout: time.Duration(cfg.Headless.AcquireTimeoutSec) * time.Second,
		UserAgent:      cfg.Sources.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init browser pool: %w", err)
	}

	client := fetch.NewClient(fetch.ClientConfig{
		UserAgent:  cfg.Sources.UserAgent,
		Timeout:    cfg.HTTPTimeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
		Backoff:    time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
	}, logger)

	renderer := fetch.NewRenderer(fetch.RendererConfig{
		NavTimeout:    time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		MarkerTimeout: time.Duration(cfg.Headless.MarkerTimeoutSec) * time.Second,
		SettleDelay:   time.Duration(cfg.Headless.SettleDelayMs) * time.Millisecond,
		DomainQPS:     cfg.Headless.DomainQPS,
	}, pool, logger)

	brk := breaker.New(cfg.Breaker.FailureThreshold,
		time.Duration(cfg.Breaker.CooldownSeconds)*time.Second)
	guardedPlain := &service.GuardedFetcher{Breaker: brk, Inner: client}
	guardedRender := &service.GuardedRenderer{Breaker: brk, Inner: renderer}

	resolver := resolve.New(resolve.Config{
		BaseURL:          cfg.Sources.PerformanceBaseURL,
		Budget:           cfg.ResolveBudget(),
		FallbackBudget:   cfg.FallbackBudget(),
		QuickMode:        cfg.Resolver.QuickMode,
		MinDocumentBytes: cfg.Resolver.MinDocumentBytes,
	}, guardedPlain, logger)

	coordinator := cache.New(map[string]time.Duration{
		service.NamespaceProfile:   time.Duration(cfg.Cache.ProfileTTLSec) * time.Second,
		service.NamespaceAffidavit: time.Duration(cfg.Cache.AffidavitTTLSec) * time.Second,
		service.NamespaceStatic:    time.Duration(cfg.Cache.StaticTTLSec) * time.Second,
	}, time.Duration(cfg.Cache.SweepSec)*time.Second, logger)

	var media *mediaproxy.Store
	if cfg.Proxy.Secret != "" {
		media, err = mediaproxy.Open(cfg.Proxy.DBPath, cfg.Proxy.Secret, logger)
		if err != nil {
			pool.Shutdown()
			return nil, err
		}
	} else {
		logger.Warn("media proxy disabled: proxy.secret not set")
	}

	svc := service.New(
		service.Config{AffidavitBaseURL: cfg.Sources.AffidavitBaseURL},
		coordinator, guardedPlain, guardedRender, resolver, media, logger,
	)

	return &App{
		Cfg:     cfg,
		Logger:  logger,
		Pool:    pool,
		Breaker: brk,
		Cache:   coordinator,
		Media:   media,
		Service: svc,
	}, nil
}

// Close releases browsers and the media store.
func (a *App) Close() {
	a.Pool.Shutdown()
	if a.Media != nil {
		if err := a.Media.Close(); err != nil {
			a.Logger.Warn("media store close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
