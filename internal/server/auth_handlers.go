package server

import (
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupForm struct {
	Username  string
	FirstName string
	LastName  string
}

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, "auth/signup", fiber.Map{"Title": "Sign up", "Form": signupForm{}})
}

// Signup handles POST /auth/signup/. A new account is signed in straight away.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := signupForm{
		Username:  c.FormValue("username"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
	}
	password := c.FormValue("password1")
	if password != c.FormValue("password2") {
		return s.render(c, "auth/signup", fiber.Map{
			"Title":  "Sign up",
			"Form":   form,
			"Errors": map[string]string{"password2": "The two password fields didn't match."},
		})
	}

	user, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username:  form.Username,
		Password:  password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		errs, ok := formErrors(err)
		if !ok {
			return err
		}
		return s.render(c, "auth/signup", fiber.Map{"Title": "Sign up", "Form": form, "Errors": errs})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, "/")
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, "auth/login", fiber.Map{
		"Title":    "Log in",
		"Next":     safeNext(c.Query("next")),
		"Username": "",
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	next := safeNext(c.FormValue("next", c.Query("next")))

	user, err := s.userService.Authenticate(c.UserContext(), username, c.FormValue("password"))
	if err != nil {
		if models.ErrorCode(err) != models.CodeUnauthorized {
			return err
		}
		middleware.Logger.InfoContext(c.UserContext(), "failed login", "username", username)
		return s.render(c, "auth/login", fiber.Map{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Errors":   map[string]string{"__all__": err.Error()},
		})
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return redirect(c, next)
}

// Logout handles /auth/logout/. The token is revoked when Redis is available.
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.Session(c); claims != nil {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session revoke failed", "error", err.Error())
		}
	}
	s.sessions.ClearCookie(c)
	c.Locals("userID", uint(0))
	c.Locals("username", "")
	return s.render(c, "auth/logged_out", fiber.Map{"Title": "Logged out"})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, expires, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return models.NewInternalError(err)
	}
	s.sessions.SetCookie(c, token, expires)
	return nil
}
