package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	rankWeekKey  = "rank:week"
	rankMonthKey = "rank:month"

	RankRangeWeek  = "week"
	RankRangeMonth = "month"
)

// RankCache is the movie rank collaborator: it receives every score change
// and serves the weekly/monthly rank reads. All writes are best-effort, so a
// rank cache failure never fails the rating operation that triggered it.
type RankCache interface {
	PushScore(ctx context.Context, movieID uuid.UUID, score float64)
	BumpDaily(ctx context.Context, movieID uuid.UUID, delta int)
	Remove(ctx context.Context, movieID uuid.UUID)
	// Trending pages through the most-rated movie ids over the last
	// week/month of daily activity buckets.
	Trending(ctx context.Context, timeRange string, page, perPage int) ([]uuid.UUID, int64, error)
	// TopRated pages through the score-ordered rank zset.
	TopRated(ctx context.Context, timeRange string, page, perPage int) ([]uuid.UUID, int64, error)
	// RebuildTrendingKeys precomputes today's union keys, called from cron.
	RebuildTrendingKeys(ctx context.Context)
}

type redisRankCache struct {
	rdb *redis.Client
}

func NewRedisRankCache(rdb *redis.Client) RankCache {
	return &redisRankCache{rdb: rdb}
}

func dailyBucketKey(day time.Time) string {
	return "rating:" + day.Format("060102")
}

func trendingKey(timeRange string, day time.Time) string {
	return fmt.Sprintf("rating:rank:%s:%s", timeRange, day.Format("060102"))
}

func (c *redisRankCache) PushScore(ctx context.Context, movieID uuid.UUID, score float64) {
	if c.rdb == nil {
		return
	}

	member := redis.Z{Score: score, Member: movieID.String()}
	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, rankWeekKey, member)
	pipe.ZAdd(ctx, rankMonthKey, member)
	pipe.Expire(ctx, rankWeekKey, 7*24*time.Hour)
	pipe.Expire(ctx, rankMonthKey, 30*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("rank cache: failed to push score for movie %s: %v", movieID, err)
	}
}

func (c *redisRankCache) BumpDaily(ctx context.Context, movieID uuid.UUID, delta int) {
	if c.rdb == nil {
		return
	}

	key := dailyBucketKey(time.Now())
	pipe := c.rdb.Pipeline()
	pipe.ZIncrBy(ctx, key, float64(delta), movieID.String())
	pipe.Expire(ctx, key, 31*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("rank cache: failed to bump daily bucket for movie %s: %v", movieID, err)
	}
}

func (c *redisRankCache) Remove(ctx context.Context, movieID uuid.UUID) {
	if c.rdb == nil {
		return
	}

	member := movieID.String()
	pipe := c.rdb.Pipeline()
	pipe.ZRem(ctx, rankWeekKey, member)
	pipe.ZRem(ctx, rankMonthKey, member)
	pipe.ZRem(ctx, dailyBucketKey(time.Now()), member)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("rank cache: failed to remove movie %s: %v", movieID, err)
	}
}

func rangeDays(timeRange string) int {
	if timeRange == RankRangeMonth {
		return 30
	}
	return 7
}

// ensureTrendingKey unions the last N daily buckets into a short-lived key so
// repeated rank reads within a few minutes share one sorted set.
func (c *redisRankCache) ensureTrendingKey(ctx context.Context, timeRange string) (string, error) {
	key := trendingKey(timeRange, time.Now())

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", err
	}
	if exists == 0 {
		days := rangeDays(timeRange)
		keys := make([]string, 0, days)
		for i := 0; i < days; i++ {
			keys = append(keys, dailyBucketKey(time.Now().AddDate(0, 0, -i)))
		}
		if err := c.rdb.ZUnionStore(ctx, key, &redis.ZStore{Keys: keys}).Err(); err != nil {
			return "", err
		}
		if err := c.rdb.Expire(ctx, key, 5*time.Minute).Err(); err != nil {
			return "", err
		}
	}
	return key, nil
}

func (c *redisRankCache) pageZSet(ctx context.Context, key string, page, perPage int) ([]uuid.UUID, int64, error) {
	total, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return nil, 0, err
	}

	start := int64(perPage * (page - 1))
	stop := start + int64(perPage) - 1
	members, err := c.rdb.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, total, nil
}

func (c *redisRankCache) Trending(ctx context.Context, timeRange string, page, perPage int) ([]uuid.UUID, int64, error) {
	if c.rdb == nil {
		return nil, 0, nil
	}

	key, err := c.ensureTrendingKey(ctx, timeRange)
	if err != nil {
		return nil, 0, err
	}
	return c.pageZSet(ctx, key, page, perPage)
}

func (c *redisRankCache) TopRated(ctx context.Context, timeRange string, page, perPage int) ([]uuid.UUID, int64, error) {
	if c.rdb == nil {
		return nil, 0, nil
	}

	key := rankWeekKey
	if timeRange == RankRangeMonth {
		key = rankMonthKey
	}
	return c.pageZSet(ctx, key, page, perPage)
}

func (c *redisRankCache) RebuildTrendingKeys(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	for _, timeRange := range []string{RankRangeWeek, RankRangeMonth} {
		key := trendingKey(timeRange, time.Now())
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			log.Printf("rank cache: failed to drop stale trending key %s: %v", key, err)
			continue
		}
		if _, err := c.ensureTrendingKey(ctx, timeRange); err != nil {
			log.Printf("rank cache: failed to rebuild trending key %s: %v", key, err)
		}
	}
}
