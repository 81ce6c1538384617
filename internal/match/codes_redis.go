package match

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultCodesKey is the redis set holding every live room code.
const DefaultCodesKey = "relay:rooms"

// CodeReserver claims room codes across relay processes.
type CodeReserver interface {
	// Reserve reports false when another holder already owns code.
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

// RedisCodes keeps live codes in one redis set. SADD returning 0 means taken.
type RedisCodes struct {
	rdb *redis.Client
	key string
}

func NewRedisCodes(rdb *redis.Client, key string) *RedisCodes {
	if strings.TrimSpace(key) == "" {
		key = DefaultCodesKey
	}
	return &RedisCodes{rdb: rdb, key: key}
}

func (c *RedisCodes) Reserve(ctx context.Context, code string) (bool, error) {
	n, err := c.rdb.SAdd(ctx, c.key, code).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *RedisCodes) Release(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return c.rdb.SRem(ctx, c.key, code).Err()
}
