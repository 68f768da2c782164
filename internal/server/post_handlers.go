package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errInvalidGroupChoice = models.NewFieldValidationError("group", "Select a valid choice. That choice is not one of the available choices.")

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	viewerID, _ := viewer(c)
	following, err := s.followService.IsFollowing(c.UserContext(), viewerID, detail.Post.AuthorID)
	if err != nil {
		return err
	}
	return s.render(c, "posts/post_detail", fiber.Map{
		"Title":           "Post " + detail.Post.String(),
		"Post":            detail.Post,
		"Comments":        detail.Comments,
		"AuthorPostCount": detail.AuthorPostCount,
		"IsAuthor":        viewerID != 0 && viewerID == detail.Post.AuthorID,
		"Following":       following,
	})
}

// CreatePostForm handles GET /create/
func (s *Server) CreatePostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, postForm{}, nil, nil)
}

// CreatePost handles POST /create/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	viewerID, viewerName := viewer(c)
	form := postForm{Text: c.FormValue("text"), Group: c.FormValue("group")}

	groupID, err := form.groupID()
	if err != nil {
		return s.renderPostFormError(c, form, nil, err)
	}
	image, err := readImage(c)
	if err != nil {
		return err
	}

	_, err = s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: viewerID,
		Text:     form.Text,
		GroupID:  groupID,
		Image:    image,
	})
	if err != nil {
		return s.renderPostFormError(c, form, nil, err)
	}
	return redirect(c, profileURL(viewerName))
}

// EditPostForm handles GET /posts/:id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	post := detail.Post
	if viewerID, _ := viewer(c); post.AuthorID != viewerID {
		return redirect(c, postURL(post.ID))
	}

	form := postForm{Text: post.Text}
	if post.GroupID != nil {
		form.Group = uintString(*post.GroupID)
	}
	return s.renderPostForm(c, form, post, nil)
}

// EditPost handles POST /posts/:id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	viewerID, _ := viewer(c)
	form := postForm{Text: c.FormValue("text"), Group: c.FormValue("group")}

	groupID, gerr := form.groupID()
	image, err := readImage(c)
	if err != nil {
		return err
	}

	err = gerr
	if err == nil {
		_, err = s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
			PostID:   id,
			EditorID: viewerID,
			Text:     form.Text,
			GroupID:  groupID,
			Image:    image,
		})
	}
	if err == nil {
		return redirect(c, postURL(id))
	}

	switch models.ErrorCode(err) {
	case models.CodeForbidden:
		return redirect(c, postURL(id))
	case models.CodeValidation:
		detail, derr := s.postService.GetPost(c.UserContext(), id)
		if derr != nil {
			return derr
		}
		if detail.Post.AuthorID != viewerID {
			return redirect(c, postURL(id))
		}
		return s.renderPostFormError(c, form, detail.Post, err)
	}
	return err
}

// DeletePost handles POST /posts/:id/delete/
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	viewerID, viewerName := viewer(c)
	err = s.postService.DeletePost(c.UserContext(), service.DeletePostInput{PostID: id, UserID: viewerID})
	if err != nil {
		if models.ErrorCode(err) == models.CodeForbidden {
			return redirect(c, postURL(id))
		}
		return err
	}
	return redirect(c, profileURL(viewerName))
}

// AddComment handles POST /posts/:id/comment/. An empty comment is dropped and the
// visitor lands back on the post.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	viewerID, _ := viewer(c)
	if c.Method() == fiber.MethodPost {
		_, err = s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
			PostID:   id,
			AuthorID: viewerID,
			Text:     c.FormValue("text"),
		})
		if err != nil && models.ErrorCode(err) != models.CodeValidation {
			return err
		}
	}
	return redirect(c, postURL(id))
}

// renderPostForm shows the create form, or the edit form when post is set.
func (s *Server) renderPostForm(c *fiber.Ctx, form postForm, post *models.Post, errs map[string]string) error {
	groups, err := s.groupService.ListGroups(c.UserContext())
	if err != nil {
		return err
	}
	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	return s.render(c, "posts/create_post", fiber.Map{
		"Title":  title,
		"IsEdit": post != nil,
		"Post":   post,
		"Form":   form,
		"Groups": groups,
		"Errors": errs,
	})
}

// renderPostFormError re-renders the form for validation errors and passes any
// other error through.
func (s *Server) renderPostFormError(c *fiber.Ctx, form postForm, post *models.Post, err error) error {
	errs, ok := formErrors(err)
	if !ok {
		return err
	}
	return s.renderPostForm(c, form, post, errs)
}
