package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

const baseLayout = "layouts/base"

func newViewEngine() *html.Engine {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("date", formatDate)
	engine.AddFunc("media", mediaURL)
	engine.AddFunc("webp", func(rel string) string {
		if v := service.WebPVariant(rel); v != "" {
			return mediaURL(v)
		}
		return ""
	})
	engine.AddFunc("linebreaksbr", linebreaksbr)
	return engine
}

func staticFS() http.FileSystem {
	return http.FS(staticFiles)
}

func isAssetPath(path string) bool {
	return strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/media/")
}

func formatDate(t time.Time) string {
	return t.Format("2 Jan 2006")
}

func mediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + strings.TrimPrefix(rel, "/")
}

func linebreaksbr(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// render executes a page template inside the base layout, adding the viewer and
// current path every page needs.
func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["ViewerID"] = middleware.ViewerID(c)
	data["ViewerName"] = middleware.ViewerName(c)
	data["Path"] = c.Path()
	data["CSRFToken"], _ = c.Locals(csrfLocal).(string)
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Yatube"
	}
	c.Type("html", "utf-8")
	return c.Render(name, data, baseLayout)
}

// page serves a template that needs no data.
func (s *Server) page(name, title string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.render(c, name, fiber.Map{"Title": title})
	}
}
