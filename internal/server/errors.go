package server

import (
	"errors"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errorHandler turns handler errors into pages. Form validation errors never get
// here; handlers re-render their forms for those.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	var appErr *models.AppError
	switch {
	case errors.As(err, &fe):
		status = fe.Code
		message = fe.Message
	case errors.As(err, &appErr):
		switch appErr.Code {
		case models.CodeNotFound:
			status = fiber.StatusNotFound
			message = appErr.Message
		case models.CodeUnauthorized:
			return c.Redirect(middleware.LoginURL(c.OriginalURL()), fiber.StatusFound)
		case models.CodeForbidden:
			status = fiber.StatusForbidden
			message = appErr.Message
		case models.CodeValidation:
			status = fiber.StatusBadRequest
			message = appErr.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	name := "errors/error"
	switch status {
	case fiber.StatusNotFound:
		name = "errors/404"
	case fiber.StatusInternalServerError:
		name = "errors/500"
	}

	c.Status(status)
	if rerr := s.render(c, name, fiber.Map{"Title": message, "Status": status, "Message": message}); rerr != nil {
		return c.Status(status).SendString(message)
	}
	return nil
}

// formErrors collects a validation error by field for re-rendering a form.
// ok is false for any other error, which the caller should return as is.
func formErrors(err error) (errs map[string]string, ok bool) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != models.CodeValidation {
		return nil, false
	}
	field := appErr.Field
	if field == "" {
		field = "__all__"
	}
	return map[string]string{field: appErr.Message}, true
}
