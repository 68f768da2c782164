package server

import (
	"net/http"
	"net/url"
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	cats := env.createGroup(t, "cats")
	post := env.createPosts(t, leo, cats, 1)[0]

	tests := []struct {
		name     string
		path     string
		contains string
	}{
		{"index", "/", "post 0 by leo"},
		{"group", "/group/cats/", "Group cats"},
		{"profile", "/profile/leo/", "All posts of Leo"},
		{"detail", postURL(post.ID), "Total posts by the author: <span>1</span>"},
		{"about author", "/about/author/", "About the author"},
		{"about tech", "/about/tech/", "Technologies"},
		{"login", "/auth/login/", "Log in"},
		{"signup", "/auth/signup/", "Sign up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, tt.path, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
			assert.Contains(t, readBody(t, resp), tt.contains)
		})
	}
}

func TestUnknownPagesAre404(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "leo")

	for _, path := range []string{"/group/nope/", "/profile/nobody/", "/posts/999/", "/posts/abc/", "/unexisting_page"} {
		t.Run(path, func(t *testing.T) {
			resp := env.get(t, path, nil)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), "Page not found")
		})
	}
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	post := env.createPosts(t, leo, nil, 1)[0]

	paths := []string{
		"/create/",
		"/follow/",
		postURL(post.ID) + "edit/",
		postURL(post.ID) + "comment/",
		"/profile/leo/follow/",
		"/profile/leo/unfollow/",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := env.get(t, path, nil)
			assert.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, "/auth/login/?next="+path, resp.Header.Get("Location"))
		})
	}
}

func TestIndexPagination(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	env.createPosts(t, leo, nil, 13)

	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"?page=2", 3},
		{"?page=3", 0},
		{"?page=bogus", 10},
		{"?page=-1", 10},
	}
	for _, tt := range tests {
		t.Run("page"+tt.query, func(t *testing.T) {
			resp := env.get(t, "/"+tt.query, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, countPostCards(readBody(t, resp)))
		})
	}

	body := readBody(t, env.get(t, "/", nil))
	assert.Contains(t, body, `href="?page=2"`)
	assert.Contains(t, body, "post 12 by leo")
}

func TestGroupAndProfileShowOnlyTheirPosts(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	anna := env.createUser(t, "anna")
	cats := env.createGroup(t, "cats")
	dogs := env.createGroup(t, "dogs")
	env.createPosts(t, leo, cats, 2)
	env.createPosts(t, anna, dogs, 3)

	body := readBody(t, env.get(t, "/group/cats/", nil))
	assert.Equal(t, 2, countPostCards(body))
	assert.NotContains(t, body, "by anna")

	body = readBody(t, env.get(t, "/profile/anna/", nil))
	assert.Equal(t, 3, countPostCards(body))
	assert.Contains(t, body, "Total posts: 3")
	assert.NotContains(t, body, "by leo")
}

func TestIndexIsCachedUntilInvalidated(t *testing.T) {
	env := newTestEnv(t)
	leo := env.createUser(t, "leo")
	post := env.createPosts(t, leo, nil, 1)[0]

	require.Contains(t, readBody(t, env.get(t, "/", nil)), "post 0 by leo")

	// A raw delete bypasses invalidation; the cached page is still served.
	require.NoError(t, env.db.Delete(&models.Post{}, post.ID).Error)
	assert.Contains(t, readBody(t, env.get(t, "/", nil)), "post 0 by leo")

	// Writes through the site drop the cached pages.
	resp := env.postForm(t, "/create/", url.Values{"text": {"fresh news"}}, leo)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	body := readBody(t, env.get(t, "/", nil))
	assert.NotContains(t, body, "post 0 by leo")
	assert.Contains(t, body, "fresh news")
}
