package server

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint. Anything else
// does not name a page, so it is a 404.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// pageParam reads ?page=; bad values fall back to the first page.
func pageParam(c *fiber.Ctx) int {
	return service.ParsePageNumber(c.Query("page"))
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func postURL(id uint) string {
	return "/posts/" + uintString(id) + "/"
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// safeNext returns next when it is a path on this site, else "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return next
}

// postForm is the submitted (or prefilled) state of the create/edit form.
type postForm struct {
	Text  string
	Group string
}

func (f postForm) groupID() (*uint, error) {
	if strings.TrimSpace(f.Group) == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(strings.TrimSpace(f.Group), 10, 32)
	if err != nil || id == 0 {
		return nil, errInvalidGroupChoice
	}
	v := uint(id)
	return &v, nil
}

// SelectedGroup reports whether the group option with id is selected.
func (f postForm) SelectedGroup(id uint) bool {
	return f.Group == uintString(id)
}

// readImage returns the uploaded image, or nil when the form has no file.
func readImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil || fh == nil || fh.Size == 0 {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}

func viewer(c *fiber.Ctx) (uint, string) {
	return middleware.ViewerID(c), middleware.ViewerName(c)
}
