package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowAuthor handles /profile/:username/follow/
func (s *Server) FollowAuthor(c *fiber.Ctx) error {
	username := c.Params("username")
	viewerID, _ := viewer(c)
	if err := s.followService.Follow(c.UserContext(), viewerID, username); err != nil {
		return err
	}
	return redirect(c, profileURL(username))
}

// UnfollowAuthor handles /profile/:username/unfollow/. Unfollowing someone you do
// not follow is a 404.
func (s *Server) UnfollowAuthor(c *fiber.Ctx) error {
	username := c.Params("username")
	viewerID, _ := viewer(c)
	if err := s.followService.Unfollow(c.UserContext(), viewerID, username); err != nil {
		return err
	}
	return redirect(c, profileURL(username))
}
