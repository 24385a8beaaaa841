package session

import (
	"context"
	"testing"
	"time"

	"taskbot/internal/picker"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	store := NewRedisStore(&RedisConfig{
		Addr:         mr.Addr(),
		PoolSize:     10,
		MinIdleConns: 1,
		MaxRetries:   0,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		TTL:          time.Hour,
	})
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestDefaultRedisConfig(t *testing.T) {
	config := DefaultRedisConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 72*time.Hour, config.TTL)
}

func TestRedisStore_GetMissingReturnsIdle(t *testing.T) {
	store, _ := setupTestRedis(t)

	s, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, s.IsIdle())
	assert.Equal(t, "u1", s.UserID)
	assert.NotNil(t, s.Fields)
	assert.Equal(t, int64(1), store.metrics.GetStats().Misses)
}

func TestRedisStore_PutAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	hour := 17
	s := New("u1")
	s.Start("create", "awaiting_time")
	s.Set("text", "Buy milk")
	s.Picker = &picker.State{Kind: picker.KindTime, Date: "2026-10-21", Hour: &hour}
	require.NoError(t, store.Put(ctx, s))

	assert.True(t, mr.Exists("dialog:session:u1"))
	assert.Equal(t, time.Hour, mr.TTL("dialog:session:u1"))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "create", got.Flow)
	assert.Equal(t, "awaiting_time", got.State)
	assert.Equal(t, "Buy milk", got.Get("text"))
	require.NotNil(t, got.Picker)
	assert.Equal(t, 17, *got.Picker.Hour)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := New("u1")
	s.Start("create", "awaiting_text")
	require.NoError(t, store.Put(ctx, s))

	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsIdle())
}

func TestRedisStore_PutIdleClears(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	s := New("u1")
	s.Start("create", "awaiting_text")
	require.NoError(t, store.Put(ctx, s))

	s.Reset()
	require.NoError(t, store.Put(ctx, s))
	assert.False(t, mr.Exists("dialog:session:u1"))
}

func TestRedisStore_InvalidJSONIsIdle(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Set("dialog:session:u1", "invalid-json")

	got, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.IsIdle())
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrUnavailable)

	s := New("u1")
	s.Start("create", "awaiting_text")
	assert.ErrorIs(t, store.Put(context.Background(), s), ErrUnavailable)
	assert.Error(t, store.Health(context.Background()))
	assert.Equal(t, int64(2), store.metrics.GetStats().Errors)
}

func TestRedisStore_HealthAndStats(t *testing.T) {
	store, _ := setupTestRedis(t)

	assert.NoError(t, store.Health(context.Background()))
	stats := store.Stats()
	assert.Equal(t, "redis", stats["backend"])
	assert.Contains(t, stats, "breaker")
}
