package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/amirphl/orochi-outreach/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "stats", []byte(`{"sent":1}`), time.Hour))
	require.NoError(t, cache.Set(ctx, "short", []byte("x"), time.Millisecond))

	value, ok, err := cache.Get(ctx, "stats")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"sent":1}`, string(value))

	time.Sleep(5 * time.Millisecond)
	_, ok, _ = cache.Get(ctx, "short")
	assert.False(t, ok)

	cache.Cleanup()
	require.NoError(t, cache.Delete(ctx, "stats"))
	_, ok, _ = cache.Get(ctx, "stats")
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	cfg := config.CacheConfig{RedisPrefix: "outreach:"}
	assert.Equal(t, "outreach:campaign-stats:abc", CacheKey(cfg, "campaign-stats", "abc"))
}

func TestNoopPublisher(t *testing.T) {
	var p EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), OutreachEvent{Type: EventEmailOpened}))
	assert.NoError(t, p.Close())
}
