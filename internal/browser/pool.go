// Package browser owns the bounded pool of long-lived headless Chrome
// processes shared by all rendered fetches.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/metrics"
)

// ErrPoolTimeout indicates no browser became available within the wait budget.
var ErrPoolTimeout = errors.New("browser pool timeout")

// Config controls pool sizing and wait behavior.
type Config struct {
	MaxBrowsers    int
	AcquireTimeout time.Duration
	UserAgent      string
}

// Handle is a live browser process reference. It is exclusively owned by at
// most one fetch at a time; callers derive an ephemeral tab context from
// Context() and must return the handle via Release or Discard.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the browser context to derive tab contexts from.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Pool maintains up to MaxBrowsers live browser processes, launching lazily
// and reusing processes across fetches. Only one launch may be in flight at a
// time so a burst of acquires cannot over-provision past the maximum.
type Pool struct {
	cfg       Config
	logger    *zap.Logger
	allocOpts []chromedp.ExecAllocatorOption

	// launch is replaceable in tests to avoid spawning real Chrome.
	launch func(ctx context.Context) (*Handle, error)

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	// gen increments on Shutdown so a launch spanning one settles into the
	// old generation, not the fresh pool.
	gen       int
	total     int
	busy      int
	launching bool
	handles   map[*Handle]struct{}
	idle      chan *Handle
	relaunch  chan struct{}
}

// New builds a Pool backed by a shared chromedp exec allocator. Browsers are
// launched lazily on first demand.
func New(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxBrowsers <= 0 {
		return nil, fmt.Errorf("max browsers must be > 0")
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	p := &Pool{
		cfg:         cfg,
		logger:      logger,
		allocOpts:   opts,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		handles:     make(map[*Handle]struct{}),
		idle:        make(chan *Handle, cfg.MaxBrowsers),
		relaunch:    make(chan struct{}, 1),
	}
	p.launch = p.launchBrowser
	return p, nil
}

func (p *Pool) launchBrowser(allocCtx context.Context) (*Handle, error) {
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Handle{ctx: browserCtx, cancel: cancel}, nil
}

// Acquire returns an idle handle, launches a new browser if capacity allows,
// or blocks until a handle is released. Exceeding the configured wait budget
// fails with ErrPoolTimeout.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	start := time.Now()
	deadline := time.NewTimer(p.cfg.AcquireTimeout)
	defer deadline.Stop()
	defer func() { metrics.ObservePoolWait(time.Since(start)) }()

	for {
		select {
		case h := <-p.idle:
			p.markBusy()
			return h, nil
		default:
		}

		h, launched, err := p.tryLaunch()
		if err != nil {
			return nil, err
		}
		if launched {
			return h, nil
		}

		p.logger.Debug("waiting for browser handle")
		select {
		case h := <-p.idle:
			p.markBusy()
			return h, nil
		case <-p.relaunch:
			// a browser was discarded, capacity may be free again
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire browser: %w", ctx.Err())
		case <-deadline.C:
			return nil, ErrPoolTimeout
		}
	}
}

// tryLaunch starts a new browser when under capacity and no other launch is
// in progress. A launch failure frees the slot and propagates only to the
// caller that triggered it.
func (p *Pool) tryLaunch() (*Handle, bool, error) {
	p.mu.Lock()
	if p.total >= p.cfg.MaxBrowsers || p.launching {
		p.mu.Unlock()
		return nil, false, nil
	}
	p.launching = true
	gen := p.gen
	allocCtx := p.allocCtx
	p.mu.Unlock()

	h, err := p.launch(allocCtx)

	p.mu.Lock()
	p.launching = false
	if err != nil {
		p.mu.Unlock()
		p.signalRelaunch()
		return nil, false, fmt.Errorf("launch browser: %w", err)
	}
	if gen != p.gen {
		// The pool was shut down mid-launch; this browser belongs to the old
		// generation. Drop it and let the caller retry against the new one.
		p.mu.Unlock()
		h.cancel()
		p.signalRelaunch()
		return nil, false, nil
	}
	p.total++
	p.busy++
	p.handles[h] = struct{}{}
	total, busy := p.total, p.busy
	p.mu.Unlock()

	metrics.SetBrowsersLive(total)
	metrics.SetBrowsersBusy(busy)
	p.logger.Info("launched browser",
		zap.Int("total", total),
		zap.Int("max", p.cfg.MaxBrowsers),
	)
	return h, true, nil
}

// Release returns a handle to the idle set. The underlying process is never
// closed on release; reuse is the point.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	if _, tracked := p.handles[h]; !tracked {
		// Shutdown or Discard already removed it; cancel is idempotent.
		p.mu.Unlock()
		h.cancel()
		return
	}
	p.busy--
	busy := p.busy
	p.mu.Unlock()

	metrics.SetBrowsersBusy(busy)
	select {
	case p.idle <- h:
	default:
		// idle never overflows: capacity equals MaxBrowsers
		h.cancel()
	}
}

// Discard removes a crashed or unusable handle from the pool so the next
// demand can launch a replacement.
func (p *Pool) Discard(h *Handle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	if _, tracked := p.handles[h]; !tracked {
		p.mu.Unlock()
		return
	}
	delete(p.handles, h)
	p.total--
	p.busy--
	total, busy := p.total, p.busy
	p.mu.Unlock()

	h.cancel()
	metrics.SetBrowsersLive(total)
	metrics.SetBrowsersBusy(busy)
	p.signalRelaunch()
	p.logger.Warn("discarded browser", zap.Int("total", total))
}

func (p *Pool) markBusy() {
	p.mu.Lock()
	p.busy++
	busy := p.busy
	p.mu.Unlock()
	metrics.SetBrowsersBusy(busy)
}

func (p *Pool) signalRelaunch() {
	select {
	case p.relaunch <- struct{}{}:
	default:
	}
}

// Stats reports pool occupancy.
func (p *Pool) Stats() (total, busy, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total, p.busy, len(p.idle)
}

// Shutdown closes every tracked browser process and clears pool state.
// Subsequent Acquire calls start from an empty pool and relaunch lazily.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.gen++
	handles := make([]*Handle, 0, len(p.handles))
	for h := range p.handles {
		handles = append(handles, h)
	}
	p.handles = make(map[*Handle]struct{})
	p.total = 0
	p.busy = 0

	oldCancel := p.allocCancel
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), p.allocOpts...)
	p.mu.Unlock()

	for {
		select {
		case <-p.idle:
			continue
		default:
		}
		break
	}
	for _, h := range handles {
		h.cancel()
	}
	oldCancel()
	metrics.SetBrowsersLive(0)
	metrics.SetBrowsersBusy(0)
	p.logger.Info("browser pool shut down", zap.Int("closed", len(handles)))
}
