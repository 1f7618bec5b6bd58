// Package breaker implements a per-host circuit breaker so a failing origin
// site cannot absorb the whole fetch budget.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/openneta/netawatch/internal/metrics"
)

// ErrOpen indicates the breaker for a host is open and calls fail fast.
var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type hostBreaker struct {
	state       state
	failures    int
	nextAttempt time.Time
}

// Breaker tracks consecutive failures per host and opens after a threshold,
// failing fast until a cooldown elapses. One successful call closes it again.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	hosts     map[string]*hostBreaker
	now       func() time.Time
}

// New builds a Breaker.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		hosts:     make(map[string]*hostBreaker),
		now:       time.Now,
	}
}

// Do runs fn under the host's breaker. An open breaker returns ErrOpen
// without invoking fn.
func (b *Breaker) Do(host string, fn func() error) error {
	if err := b.allow(host); err != nil {
		return err
	}
	err := fn()
	b.record(host, err == nil)
	return err
}

func (b *Breaker) allow(host string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb := b.hosts[host]
	if hb == nil {
		return nil
	}
	if hb.state == stateOpen {
		if b.now().Before(hb.nextAttempt) {
			return ErrOpen
		}
		hb.state = stateHalfOpen
	}
	return nil
}

func (b *Breaker) record(host string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb := b.hosts[host]
	if hb == nil {
		hb = &hostBreaker{}
		b.hosts[host] = hb
	}
	if ok {
		hb.failures = 0
		hb.state = stateClosed
		return
	}
	hb.failures++
	if hb.state == stateHalfOpen || hb.failures >= b.threshold {
		hb.state = stateOpen
		hb.nextAttempt = b.now().Add(b.cooldown)
		metrics.ObserveBreakerOpen(host)
	}
}

// State reports whether the host's breaker currently rejects calls.
func (b *Breaker) State(host string) (open bool, failures int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb := b.hosts[host]
	if hb == nil {
		return false, 0
	}
	return hb.state == stateOpen && b.now().Before(hb.nextAttempt), hb.failures
}
