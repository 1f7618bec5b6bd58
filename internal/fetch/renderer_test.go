package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRenderer_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRenderer(RendererConfig{}, nil, zap.NewNop())
	assert.Equal(t, 30*time.Second, r.cfg.NavTimeout)
	assert.Equal(t, 15*time.Second, r.cfg.MarkerTimeout)
	assert.Equal(t, 2*time.Second, r.cfg.SettleDelay)
}

func TestAwaitMarkers_ReturnsOnCancelledContext(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRenderer(RendererConfig{MarkerTimeout: 10 * time.Second}, nil, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	markers := []string{"#movable_assets", "#immovable_assets", "#liabilities"}
	start := time.Now()
	r.awaitMarkers(ctx, "https://www.myneta.info/x", markers)
	assert.Less(t, time.Since(start), time.Second, "cancelled context must not sit out marker timeouts")
	assert.Zero(t, logs.FilterMessage("content marker missing").Len(),
		"no markers should be polled once the caller is gone")
}

func TestAwaitMarkers_LogsEachMissingMarker(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRenderer(RendererConfig{MarkerTimeout: 10 * time.Second}, nil, zap.New(core))

	// A plain context is not a chromedp context, so each wait fails fast;
	// a missing marker is tolerated and the loop moves on to the next one.
	markers := []string{"#movable_assets", "#immovable_assets"}
	r.awaitMarkers(context.Background(), "https://www.myneta.info/x", markers)
	assert.Equal(t, len(markers), logs.FilterMessage("content marker missing").Len())
}

func TestWaitDomainBudget_ThrottlesPerHost(t *testing.T) {
	t.Parallel()

	r := NewRenderer(RendererConfig{DomainQPS: 20}, nil, zap.NewNop())
	ctx := context.Background()

	// First request per host consumes the burst; the second waits a tick.
	start := time.Now()
	require.NoError(t, r.waitDomainBudget(ctx, "https://www.myneta.info/a"))
	require.NoError(t, r.waitDomainBudget(ctx, "https://www.myneta.info/b"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	// A different host has its own budget.
	start = time.Now()
	require.NoError(t, r.waitDomainBudget(ctx, "https://prsindia.org/c"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitDomainBudget_DisabledWhenZero(t *testing.T) {
	t.Parallel()

	r := NewRenderer(RendererConfig{}, nil, zap.NewNop())
	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, r.waitDomainBudget(context.Background(), "https://www.myneta.info/x"))
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitDomainBudget_HonorsContext(t *testing.T) {
	t.Parallel()

	r := NewRenderer(RendererConfig{DomainQPS: 0.1}, nil, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, r.waitDomainBudget(ctx, "https://www.myneta.info/a"))
	err := r.waitDomainBudget(ctx, "https://www.myneta.info/b")
	require.Error(t, err)
}
