// Package cache provides the TTL cache and request-coalescing coordinator
// shared by all record lookups.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erni27/imcache"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/metrics"
)

// ComputeFunc produces a value for a cache miss. The found flag reports
// whether the computation produced a positive result; negative results are
// returned to callers but never cached, so a transient miss can be retried.
type ComputeFunc func(ctx context.Context) (value any, found bool, err error)

// ticket is the single shared pending-result handle for one identity key.
// All callers that arrive while it is live receive the same eventual result.
type ticket struct {
	done  chan struct{}
	value any
	found bool
	err   error
}

// Coordinator owns one TTL store per namespace plus the in-flight ticket map
// that guarantees at most one computation per identity at any instant.
type Coordinator struct {
	logger *zap.Logger

	mu      sync.Mutex
	stores  map[string]*imcache.Cache[string, any]
	tickets map[string]*ticket
}

// New builds a Coordinator with one independent TTL store per namespace.
// Expiry is lazy on read plus a periodic background sweep.
func New(ttls map[string]time.Duration, sweep time.Duration, logger *zap.Logger) *Coordinator {
	stores := make(map[string]*imcache.Cache[string, any], len(ttls))
	for ns, ttl := range ttls {
		opts := []imcache.Option[string, any]{
			imcache.WithDefaultExpirationOption[string, any](ttl),
		}
		if sweep > 0 {
			opts = append(opts, imcache.WithCleanerOption[string, any](sweep))
		}
		stores[ns] = imcache.New[string, any](opts...)
	}
	return &Coordinator{
		logger:  logger,
		stores:  stores,
		tickets: make(map[string]*ticket),
	}
}

// Key builds a cache key as a pure function of normalized inputs, so
// logically identical requests collide regardless of caller formatting.
func Key(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return strings.Join(normalized, ":")
}

// Get returns a live cached value for (namespace, key).
func (c *Coordinator) Get(namespace, key string) (any, bool) {
	store := c.stores[namespace]
	if store == nil {
		return nil, false
	}
	v, ok := store.Get(key)
	if ok {
		metrics.ObserveCacheLookup(namespace, "hit")
	} else {
		metrics.ObserveCacheLookup(namespace, "miss")
	}
	return v, ok
}

// Set stores a value under the namespace's default TTL.
func (c *Coordinator) Set(namespace, key string, value any) {
	if store := c.stores[namespace]; store != nil {
		store.Set(key, value, imcache.WithDefaultExpiration())
	}
}

// SetTTL stores a value with an explicit TTL overriding the namespace default.
func (c *Coordinator) SetTTL(namespace, key string, value any, ttl time.Duration) {
	if store := c.stores[namespace]; store != nil {
		store.Set(key, value, imcache.WithExpiration(ttl))
	}
}

// Invalidate removes one entry.
func (c *Coordinator) Invalidate(namespace, key string) {
	if store := c.stores[namespace]; store != nil {
		store.Remove(key)
	}
}

// Flush clears a whole namespace.
func (c *Coordinator) Flush(namespace string) {
	if store := c.stores[namespace]; store != nil {
		store.RemoveAll()
	}
}

// GetOrCompute returns the cached value for (namespace, key), joins an
// in-flight computation for that identity if one exists, or runs computeFn
// itself. Concurrent callers with the same identity trigger computeFn exactly
// once and all observe the same outcome.
func (c *Coordinator) GetOrCompute(ctx context.Context, namespace, key string, computeFn ComputeFunc) (any, bool, error) {
	store := c.stores[namespace]
	if store == nil {
		return nil, false, fmt.Errorf("unknown cache namespace %q", namespace)
	}
	ticketKey := namespace + "\x00" + key

	c.mu.Lock()
	if v, ok := store.Get(key); ok {
		c.mu.Unlock()
		metrics.ObserveCacheLookup(namespace, "hit")
		return v, true, nil
	}
	metrics.ObserveCacheLookup(namespace, "miss")

	if t := c.tickets[ticketKey]; t != nil {
		c.mu.Unlock()
		metrics.ObserveCoalesced(namespace)
		select {
		case <-t.done:
			return t.value, t.found, t.err
		case <-ctx.Done():
			return nil, false, fmt.Errorf("await in-flight result: %w", ctx.Err())
		}
	}

	t := &ticket{done: make(chan struct{})}
	c.tickets[ticketKey] = t
	c.mu.Unlock()

	value, found, err := computeFn(ctx)

	// Settlement: store (positive results only) and remove the ticket under
	// one lock, then release waiters. A caller arriving after removal starts
	// a fresh computation; one blocked on the ticket sees this outcome.
	c.mu.Lock()
	if err == nil && found {
		store.Set(key, value, imcache.WithDefaultExpiration())
	}
	delete(c.tickets, ticketKey)
	c.mu.Unlock()

	t.value, t.found, t.err = value, found, err
	close(t.done)

	if err != nil {
		c.logger.Debug("computation failed",
			zap.String("namespace", namespace),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return value, found, err
}

// Sizes reports the live entry count per namespace, for the stats endpoint.
func (c *Coordinator) Sizes() map[string]int {
	out := make(map[string]int, len(c.stores))
	for ns, store := range c.stores {
		out[ns] = store.Len()
	}
	return out
}
