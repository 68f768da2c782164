// Package middleware provides logging, session authentication, rate limiting, metrics
// and tracing middleware for the application.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "yatube_session"
	// LoginPath is where anonymous visitors are sent for protected pages.
	LoginPath = "/auth/login/"

	sessionTTL    = 7 * 24 * time.Hour
	tokenIssuer   = "yatube"
	tokenAudience = "yatube-web"
)

// ErrSessionRevoked is returned for tokens invalidated by logout.
var ErrSessionRevoked = errors.New("session has been revoked")

// SessionClaims are the JWT claims stored in the session cookie.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return uint(id), nil
}

// SessionAuth issues, verifies and revokes cookie sessions. Revocation needs Redis;
// without it logout only drops the cookie.
type SessionAuth struct {
	secret []byte
	rdb    *redis.Client
	secure bool
	now    func() time.Time
}

// NewSessionAuth creates a SessionAuth. secure marks the cookie HTTPS-only.
func NewSessionAuth(secret string, rdb *redis.Client, secure bool) *SessionAuth {
	return &SessionAuth{
		secret: []byte(secret),
		rdb:    rdb,
		secure: secure,
		now:    time.Now,
	}
}

// Issue signs a session token for the user.
func (a *SessionAuth) Issue(userID uint, username string) (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := a.now()
	expires := now.Add(sessionTTL)
	claims := SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse validates the token and checks it against the revocation list.
func (a *SessionAuth) Parse(ctx context.Context, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if claims.ID != "" && a.rdb != nil {
		n, err := a.rdb.Exists(ctx, blacklistKey(claims.ID)).Result()
		if err == nil && n > 0 {
			return nil, ErrSessionRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (a *SessionAuth) Revoke(ctx context.Context, claims *SessionClaims) error {
	if a.rdb == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	return a.rdb.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err()
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// SetCookie stores the session token on the response.
func (a *SessionAuth) SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (a *SessionAuth) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// LoadViewer resolves the session cookie, if any, into c.Locals("userID") and
// c.Locals("username"). Invalid or revoked cookies are cleared and the request
// continues anonymously.
func (a *SessionAuth) LoadViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(SessionCookie)
		if raw == "" {
			return c.Next()
		}

		claims, err := a.Parse(c.UserContext(), raw)
		if err != nil {
			a.ClearCookie(c)
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			a.ClearCookie(c)
			return c.Next()
		}

		c.Locals("userID", userID)
		c.Locals("username", claims.Username)
		c.Locals("session", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}

// LoginRequired redirects anonymous visitors to the login page, remembering where they were going.
func LoginRequired(c *fiber.Ctx) error {
	if ViewerID(c) != 0 {
		return c.Next()
	}
	return c.Redirect(LoginURL(c.OriginalURL()), fiber.StatusFound)
}

// LoginURL builds the login address with a next parameter. Slashes stay readable.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// ViewerID returns the authenticated user's ID, or 0 for anonymous requests.
func ViewerID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// ViewerName returns the authenticated user's username, or "".
func ViewerName(c *fiber.Ctx) string {
	if name, ok := c.Locals("username").(string); ok {
		return name
	}
	return ""
}

// Session returns the parsed session claims of the current request, if any.
func Session(c *fiber.Ctx) *SessionClaims {
	if claims, ok := c.Locals("session").(*SessionClaims); ok {
		return claims
	}
	return nil
}
