package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "s3cret-pass"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	cfg    *config.Config
	csrf   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            "test-secret",
		DBDriver:             "sqlite",
		SQLitePath:           ":memory:",
		PostsOnPage:          10,
		IndexCacheTTLSeconds: 20,
		MediaRoot:            t.TempDir(),
		ImageMaxUploadSizeMB: 1,
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	s.userService.WithBcryptCost(bcrypt.MinCost)
	return &testEnv{server: s, app: s.NewApp(), db: db, cfg: cfg}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, Password: string(hash), FirstName: strings.ToUpper(username[:1]) + username[1:]}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createGroup(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(t, e.db.Create(g).Error)
	return g
}

// createPosts inserts n posts one second apart; the last one is the newest.
func (e *testEnv) createPosts(t *testing.T, author *models.User, group *models.Group, n int) []*models.Post {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Post{
			Text:      fmt.Sprintf("post %d by %s", i, author.Username),
			AuthorID:  author.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if group != nil {
			p.GroupID = &group.ID
		}
		require.NoError(t, e.db.Omit("Author", "Group").Create(p).Error)
		posts = append(posts, p)
	}
	return posts
}

// sessionCookie signs a session for user the same way Login does.
func (e *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	token, _, err := e.server.sessions.Issue(user.ID, user.Username)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

// csrfToken returns a token issued by a page load, reused for the env's lifetime.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	if e.csrf == "" {
		resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/about/tech/", nil), -1)
		require.NoError(t, err)
		for _, c := range resp.Cookies() {
			if c.Name == csrfCookie {
				e.csrf = c.Value
			}
		}
		require.NotEmpty(t, e.csrf, "no csrf cookie issued")
	}
	return e.csrf
}

// do runs req, authenticated as user when user is non-nil. Unsafe requests
// carry a valid csrf token unless the caller already set one.
func (e *testEnv) do(t *testing.T, req *http.Request, user *models.User) *http.Response {
	t.Helper()
	if user != nil {
		req.AddCookie(e.sessionCookie(t, user))
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Header.Get(csrf.HeaderName) == "" {
		token := e.csrfToken(t)
		req.AddCookie(&http.Cookie{Name: csrfCookie, Value: token})
		req.Header.Set(csrf.HeaderName, token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, target string, user *models.User) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil), user)
}

func (e *testEnv) postForm(t *testing.T, target string, values url.Values, user *models.User) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, user)
}

type upload struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func (e *testEnv) postMultipart(t *testing.T, target string, values map[string]string, file *upload, user *models.User) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req, user)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func countPostCards(body string) int {
	return strings.Count(body, `<article class="post">`)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}
