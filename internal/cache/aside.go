package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"yatube/internal/middleware"
)

// GetJSON reads key into dest. Returns (true, nil) on a hit and (false, nil) on a miss.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	b, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it with ttl.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}

// Aside tries the store first; on a miss it calls fetch (which must populate dest) and
// stores the result with ttl. Cache failures are logged and never fail the request.
func Aside(ctx context.Context, s Store, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, s, key, dest)
	switch {
	case err != nil:
		middleware.PageCacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err.Error())
	case found:
		middleware.PageCacheLookups.WithLabelValues("hit").Inc()
		return nil
	default:
		middleware.PageCacheLookups.WithLabelValues("miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, s, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err.Error())
	}
	return nil
}
