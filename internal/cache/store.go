package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// NewStore returns a Redis-backed store when rdb is non-nil, otherwise an in-memory one.
func NewStore(rdb *redis.Client) Store {
	if rdb != nil {
		return NewRedisStore(rdb)
	}
	return NewMemoryStore()
}

// Key prefixes.
const (
	IndexPagePrefix = "index_page:"
)

// IndexPageKey identifies a cached page of the all-posts feed.
func IndexPageKey(page int) string {
	return fmt.Sprintf("%s%d", IndexPagePrefix, page)
}
