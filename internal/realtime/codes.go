package realtime

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/redis/go-redis/v9"
)

const (
	counterKey = "activation_code_counter"

	codeFloor = 100_000_000
	seedCeil  = 900_000_000
	codeCeil  = 999_999_999
)

// CodeIssuer hands out 9-digit activation codes from a Redis counter.
// Uniqueness comes from the monotonic increment; the random seed only makes
// codes unpredictable after a restart. The counter never rewinds, so an
// issued code is never re-issued until the counter wraps.
type CodeIssuer struct {
	rdb *redis.Client
}

func NewCodeIssuer(rdb *redis.Client) *CodeIssuer {
	return &CodeIssuer{rdb: rdb}
}

func (c *CodeIssuer) Next(ctx context.Context) (int64, error) {
	exists, err := c.rdb.Exists(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check code counter: %w", err)
	}
	if exists == 0 {
		if err := c.rdb.Set(ctx, counterKey, seed(), 0).Err(); err != nil {
			return 0, fmt.Errorf("failed to seed code counter: %w", err)
		}
	}

	code, err := c.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance code counter: %w", err)
	}

	if code >= codeCeil {
		if err := c.rdb.Set(ctx, counterKey, seed(), 0).Err(); err != nil {
			return 0, fmt.Errorf("failed to reseed code counter: %w", err)
		}
		code, err = c.rdb.Incr(ctx, counterKey).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to advance code counter: %w", err)
		}
	}

	return code, nil
}

func seed() int64 {
	return codeFloor + rand.Int64N(seedCeil-codeFloor)
}
