package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	testingutil "github.com/amirphl/pick-intro/testing"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedInterestService_Redis(t *testing.T) {
	err := testingutil.TestWithRedis(func(tr *testingutil.TestRedis) error {
		ctx := context.Background()
		backing := services.NewMockInterestService(services.StarterInterests)
		cached := services.NewCachedInterestService(backing, tr.Client, tr.Prefix, time.Minute, zerolog.Nop())

		first, err := cached.SearchInterests(ctx, "Coffee")
		require.NoError(t, err)
		second, err := cached.SearchInterests(ctx, "  coffee ")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Len(t, backing.GetSearchQueries(), 1, "normalized query should hit the cache")

		_, err = cached.SearchInterests(ctx, "")
		require.NoError(t, err)
		resolution, err := cached.ResolveInterest(ctx, "Urban Sketching")
		require.NoError(t, err)
		assert.True(t, resolution.Created)

		exists, err := tr.Client.Exists(ctx, tr.Prefix+"interests:search:").Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "creating an interest drops the starter set")
		return nil
	})
	if errors.Is(err, testingutil.ErrRedisUnavailable) {
		t.Skip("redis not available")
	}
	require.NoError(t, err)
}

func TestCachedInterestService_RedisDownFallsThrough(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rc.Close()

	backing := services.NewMockInterestService(services.StarterInterests)
	cached := services.NewCachedInterestService(backing, rc, "pick:", time.Minute, zerolog.Nop())

	for range 2 {
		options, err := cached.SearchInterests(context.Background(), "coffee")
		require.NoError(t, err)
		require.Len(t, options, 1)
	}
	assert.Len(t, backing.GetSearchQueries(), 2)
}
