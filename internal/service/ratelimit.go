package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelist.io/reelist/pkg/apperror"
)

// RateLimiter throttles per-user write actions with a redis SetNX lock. A nil
// redis client disables limiting entirely.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

func rateLimitKey(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Acquire claims the action slot for the user, returning
// apperror.ErrRateLimitExceeded when the previous claim has not expired.
func (l *RateLimiter) Acquire(ctx context.Context, userID uuid.UUID, action string, window time.Duration) error {
	if l.rdb == nil {
		return nil
	}

	wasSet, err := l.rdb.SetNX(ctx, rateLimitKey(userID, action), "locked", window).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if !wasSet {
		return apperror.ErrRateLimitExceeded
	}
	return nil
}

// TTL reports how long until the user may retry the action.
func (l *RateLimiter) TTL(ctx context.Context, userID uuid.UUID, action string) (time.Duration, error) {
	if l.rdb == nil {
		return 0, nil
	}
	return l.rdb.TTL(ctx, rateLimitKey(userID, action)).Result()
}

// Release drops the claim early, used when the limited action fails.
func (l *RateLimiter) Release(ctx context.Context, userID uuid.UUID, action string) error {
	if l.rdb == nil {
		return nil
	}
	_, err := l.rdb.Del(ctx, rateLimitKey(userID, action)).Result()
	return err
}
