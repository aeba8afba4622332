package testing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable means no test redis is configured
var ErrRedisUnavailable = errors.New("TEST_REDIS_URL is not set")

// TestRedisConfig holds the connection settings for integration tests
type TestRedisConfig struct {
	URL string
	DB  int
}

// GetTestRedisConfig loads the test redis settings from the environment.
// An empty URL means redis-backed tests are skipped.
func GetTestRedisConfig() *TestRedisConfig {
	return &TestRedisConfig{
		URL: getEnv("TEST_REDIS_URL", ""),
	}
}

// TestRedis is a redis client scoped to a unique key prefix
type TestRedis struct {
	Client *redis.Client
	Prefix string
}

// SetupTestRedis connects to the test redis and allocates a unique key prefix
func SetupTestRedis() (*TestRedis, error) {
	config := GetTestRedisConfig()
	if config.URL == "" {
		return nil, ErrRedisUnavailable
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping test redis: %w", err)
	}

	return &TestRedis{
		Client: client,
		Prefix: fmt.Sprintf("pick_test_%d_%d:", time.Now().Unix(), rand.Intn(10000)),
	}, nil
}

// Teardown deletes every key under the prefix and closes the client
func (tr *TestRedis) Teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := tr.Client.Scan(ctx, 0, tr.Prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		tr.Client.Del(ctx, iter.Val())
	}
	scanErr := iter.Err()
	closeErr := tr.Client.Close()
	if scanErr != nil {
		return scanErr
	}
	return closeErr
}

// TestWithRedis runs fn against a fresh prefix. It returns ErrRedisUnavailable when
// TEST_REDIS_URL is unset so callers can skip.
func TestWithRedis(fn func(*TestRedis) error) error {
	tr, err := SetupTestRedis()
	if err != nil {
		return err
	}
	defer tr.Teardown()
	return fn(tr)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
