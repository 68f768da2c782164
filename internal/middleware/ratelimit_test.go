package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimitEnabled(t *testing.T) {
	for _, env := range []string{"", "test", "development", "stress"} {
		assert.False(t, RateLimitEnabled(env), env)
	}
	assert.True(t, RateLimitEnabled("production"))
	assert.True(t, RateLimitEnabled("staging"))
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("nil redis", func(t *testing.T) {
		allowed, err := CheckRateLimit(ctx, nil, "create_post", "user:1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts within window and resets after it", func(t *testing.T) {
		mr, rdb := newTestRedis(t)

		for i := 0; i < 2; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		// other identities have their own budget
		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "user:2", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		mr.FastForward(time.Minute + time.Second)
		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	do := func(t *testing.T, app *fiber.App, method string) int {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(method, "/create/", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("bypass in test env", func(t *testing.T) {
		app := fiber.New()
		app.Post("/create/", NewRateLimiter(nil, "test").Limit("create_post", 1, time.Minute), handler)
		assert.Equal(t, http.StatusOK, do(t, app, http.MethodPost))
		assert.Equal(t, http.StatusOK, do(t, app, http.MethodPost))
	})

	t.Run("fail open with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Post("/create/", NewRateLimiter(nil, "production").Limit("create_post", 1, time.Minute), handler)
		assert.Equal(t, http.StatusOK, do(t, app, http.MethodPost))
	})

	t.Run("fail closed with nil redis", func(t *testing.T) {
		app := fiber.New()
		limiter := NewRateLimiter(nil, "production").WithPolicy(FailClosed)
		app.Post("/create/", limiter.Limit("create_post", 1, time.Minute), handler)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, app, http.MethodPost))
	})

	t.Run("limits posts but not form views", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		limit := NewRateLimiter(rdb, "production").Limit("create_post", 1, time.Minute)
		app.Get("/create/", limit, handler)
		app.Post("/create/", limit, handler)

		assert.Equal(t, http.StatusOK, do(t, app, http.MethodPost))
		assert.Equal(t, http.StatusTooManyRequests, do(t, app, http.MethodPost))
		assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet))
	})
}
