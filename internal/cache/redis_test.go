package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	expected := models.UsageStats{
		UsageCount:        3,
		MonthlyUsageLimit: 10,
		RemainingCount:    7,
		UsedSeconds:       120,
		MonthlySeconds:    1800,
		RemainingSeconds:  1680,
	}
	err := cache.Set(ctx, UsageKey("user-1"), expected, time.Minute)
	require.NoError(t, err)

	var actual models.UsageStats
	found, err := cache.Get(ctx, UsageKey("user-1"), &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache := setupTestCache(t)

	var out models.UsageStats
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, RecordingKey("rec-1"), map[string]string{"status": "DONE"}, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, RecordingKey("rec-1")))

	var out map[string]string
	found, err := cache.Get(ctx, RecordingKey("rec-1"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}
