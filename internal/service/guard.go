package service

import (
	"context"
	"net/url"

	"github.com/openneta/netawatch/internal/breaker"
)

// PlainFetcher fetches a URL over plain HTTP.
type PlainFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// RenderFetcher fetches a URL through a headless browser, waiting for the
// given content markers.
type RenderFetcher interface {
	Fetch(ctx context.Context, rawURL string, markers []string) (string, error)
}

// GuardedFetcher wraps a PlainFetcher with the per-host circuit breaker so
// a misbehaving origin sheds load instead of queueing retries.
type GuardedFetcher struct {
	Breaker *breaker.Breaker
	Inner   PlainFetcher
}

func (g *GuardedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	var html string
	err := g.Breaker.Do(hostOf(rawURL), func() error {
		var err error
		html, err = g.Inner.Fetch(ctx, rawURL)
		return err
	})
	return html, err
}

// GuardedRenderer is the rendered-fetch counterpart of GuardedFetcher.
type GuardedRenderer struct {
	Breaker *breaker.Breaker
	Inner   RenderFetcher
}

func (g *GuardedRenderer) Fetch(ctx context.Context, rawURL string, markers []string) (string, error) {
	var html string
	err := g.Breaker.Do(hostOf(rawURL), func() error {
		var err error
		html, err = g.Inner.Fetch(ctx, rawURL, markers)
		return err
	})
	return html, err
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
