package server

import (
	"yatube/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.ListAll(c.UserContext(), pageParam(c))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index", fiber.Map{
		"Title": "Latest updates on the site",
		"Page":  page,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, page, err := s.feedService.ListByGroup(c.UserContext(), c.Params("slug"), pageParam(c))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list", fiber.Map{
		"Title": "Group posts " + group.Title,
		"Group": group,
		"Page":  page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.ListByAuthor(c.UserContext(), c.Params("username"), middleware.ViewerID(c), pageParam(c))
	if err != nil {
		return err
	}
	return s.render(c, "posts/profile", fiber.Map{
		"Title":     "Profile of " + feed.Author.FullName(),
		"Author":    feed.Author,
		"Following": feed.Following,
		"PostCount": feed.PostCount,
		"Page":      feed.Page,
	})
}

// FollowIndex handles GET /follow/
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.ListFollowed(c.UserContext(), middleware.ViewerID(c), pageParam(c))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow", fiber.Map{
		"Title": "Posts from authors you follow",
		"Page":  page,
	})
}
