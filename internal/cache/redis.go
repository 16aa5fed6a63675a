package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"valvenet/internal/domain"
)

const DefaultTTL = 24 * time.Hour

// ResultCache keeps solved scores in Redis, keyed by input checksum.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(redisOpts *redis.Options, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		rdb: redis.NewClient(redisOpts),
		ttl: ttl,
	}
}

// Open parses a redis:// URL and checks connectivity.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*ResultCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := New(opts, ttl)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return c, nil
}

func (c *ResultCache) Close() error {
	return c.rdb.Close()
}

func (c *ResultCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func Key(checksum string) string {
	return fmt.Sprintf("valvenet:result:%s", checksum)
}

func (c *ResultCache) Get(ctx context.Context, checksum string) (domain.Scores, bool, error) {
	raw, err := c.rdb.Get(ctx, Key(checksum)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Scores{}, false, nil
	}
	if err != nil {
		return domain.Scores{}, false, fmt.Errorf("read cached result: %w", err)
	}
	var scores domain.Scores
	if err := json.Unmarshal(raw, &scores); err != nil {
		return domain.Scores{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return scores, true, nil
}

func (c *ResultCache) Put(ctx context.Context, checksum string, scores domain.Scores) error {
	raw, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(checksum), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached result: %w", err)
	}
	return nil
}
