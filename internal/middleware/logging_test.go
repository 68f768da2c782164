package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(9))
	logger.With("component", "test").InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, float64(9), entry["user_id"])
	assert.Equal(t, "test", entry["component"])
}

func TestStructuredLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger("production", &buf)
	t.Cleanup(func() { Logger = prev })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/group/:slug/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/group/cats/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request processed", entry["msg"])
	assert.Equal(t, "/group/cats/", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestStructuredLogger_LogsStatusFromErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger("production", &buf)
	t.Cleanup(func() { Logger = prev })

	errLoginRequired := errors.New("login required")
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, errLoginRequired) {
				return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
			}
			return fiber.DefaultErrorHandler(c, err)
		},
	})
	app.Use(StructuredLogger())
	app.Get("/posts/:id/", func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/follow/", func(c *fiber.Ctx) error { return errLoginRequired })
	app.Get("/boom/", func(c *fiber.Ctx) error { return errors.New("db down") })

	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/posts/999/", fiber.StatusNotFound, "INFO"},
		{"/follow/", fiber.StatusFound, "INFO"},
		{"/boom/", fiber.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, tt.level, entry["level"])
			assert.NotEmpty(t, entry["error"])
		})
	}
}
