package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func newTestCoordinator(ttl time.Duration) *Coordinator {
	return New(map[string]time.Duration{
		"profile": ttl,
	}, time.Minute, zap.NewNop())
}

func TestKey_Normalizes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mp:ramesh kumar", Key("MP", " Ramesh Kumar "))
	assert.Equal(t, Key("mp", "ramesh kumar"), Key("MP", "RAMESH KUMAR"))
}

func TestGetOrCompute_ConcurrentCallersComputeOnce(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	var computations atomic.Int32
	release := make(chan struct{})

	const callers = 16
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, found, err := c.GetOrCompute(context.Background(), "profile", "ramesh", func(context.Context) (any, bool, error) {
				computations.Add(1)
				<-release
				return "record", true, nil
			})
			assert.NoError(t, err)
			assert.True(t, found)
			results[i] = v
		}(i)
	}

	// Let every caller reach the coordinator before the computation settles.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computations.Load())
	for _, v := range results {
		assert.Equal(t, "record", v)
	}
}

func TestGetOrCompute_NegativeResultNotCached(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	var computations atomic.Int32

	compute := func(context.Context) (any, bool, error) {
		computations.Add(1)
		return "not-found-result", false, nil
	}

	v, found, err := c.GetOrCompute(context.Background(), "profile", "ghost", compute)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "not-found-result", v)

	// A second call recomputes: nothing was retained.
	_, _, err = c.GetOrCompute(context.Background(), "profile", "ghost", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), computations.Load())
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	var computations atomic.Int32
	boom := errors.New("origin down")

	compute := func(context.Context) (any, bool, error) {
		computations.Add(1)
		return nil, false, boom
	}

	_, _, err := c.GetOrCompute(context.Background(), "profile", "ramesh", compute)
	require.ErrorIs(t, err, boom)

	_, _, err = c.GetOrCompute(context.Background(), "profile", "ramesh", compute)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), computations.Load())
}

func TestGetOrCompute_TTLExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(30 * time.Millisecond)
	var computations atomic.Int32

	compute := func(context.Context) (any, bool, error) {
		computations.Add(1)
		return "record", true, nil
	}

	_, _, err := c.GetOrCompute(context.Background(), "profile", "ramesh", compute)
	require.NoError(t, err)
	_, _, err = c.GetOrCompute(context.Background(), "profile", "ramesh", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(1), computations.Load(), "hit within TTL must not recompute")

	time.Sleep(60 * time.Millisecond)

	_, _, err = c.GetOrCompute(context.Background(), "profile", "ramesh", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), computations.Load(), "expired entry must recompute")
}

func TestGetOrCompute_WaiterHonorsContext(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _, _ = c.GetOrCompute(context.Background(), "profile", "slow", func(context.Context) (any, bool, error) {
			close(started)
			<-release
			return "record", true, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.GetOrCompute(ctx, "profile", "slow", func(context.Context) (any, bool, error) {
		t.Fatal("joined caller must not compute")
		return nil, false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestGetOrCompute_UnknownNamespace(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	_, _, err := c.GetOrCompute(context.Background(), "bogus", "k", func(context.Context) (any, bool, error) {
		return nil, false, nil
	})
	require.Error(t, err)
}

func TestInvalidateAndSizes(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(time.Minute)
	c.Set("profile", "a", 1)
	c.Set("profile", "b", 2)
	assert.Equal(t, 2, c.Sizes()["profile"])

	c.Invalidate("profile", "a")
	_, ok := c.Get("profile", "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Sizes()["profile"])

	c.Flush("profile")
	assert.Equal(t, 0, c.Sizes()["profile"])
}
