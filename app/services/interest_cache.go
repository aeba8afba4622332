package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedInterestService caches search results in Redis. Cache failures fall through to the wrapped service.
type CachedInterestService struct {
	next   InterestService
	rc     redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedInterestService wraps next with a Redis-backed search cache
func NewCachedInterestService(next InterestService, rc redis.UniversalClient, prefix string, ttl time.Duration, logger zerolog.Logger) *CachedInterestService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedInterestService{
		next:   next,
		rc:     rc,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With().Str("component", "interest_cache").Logger(),
	}
}

func (s *CachedInterestService) searchKey(query string) string {
	return s.prefix + "interests:search:" + strings.ToLower(strings.TrimSpace(query))
}

func (s *CachedInterestService) SearchInterests(ctx context.Context, query string) ([]models.InterestOption, error) {
	key := s.searchKey(query)

	raw, err := s.rc.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []models.InterestOption
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		s.logger.Warn().Err(err).Str("key", key).Msg("interest cache read failed")
	}

	options, err := s.next.SearchInterests(ctx, query)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(options); jsonErr == nil {
		if setErr := s.rc.Set(ctx, key, payload, s.ttl).Err(); setErr != nil {
			s.logger.Warn().Err(setErr).Str("key", key).Msg("interest cache write failed")
		}
	}
	return options, nil
}

// ResolveInterest is never cached; a resolution may create a pending interest.
// The starter set is dropped so the next empty search sees approvals promptly.
func (s *CachedInterestService) ResolveInterest(ctx context.Context, label string) (*models.InterestResolution, error) {
	resolution, err := s.next.ResolveInterest(ctx, label)
	if err != nil {
		return nil, err
	}
	if resolution.Created {
		if delErr := s.rc.Del(ctx, s.searchKey("")).Err(); delErr != nil {
			s.logger.Warn().Err(delErr).Msg("interest cache invalidation failed")
		}
	}
	return resolution, nil
}
