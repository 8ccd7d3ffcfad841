package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errFrom maps a service error onto an API error. notFoundMsg is used for
// domain.ErrNotFound so handlers can name the missing thing.
func errFrom(c *fiber.Ctx, err error, notFoundMsg string) error {
	var cfgErr *domain.ConfigurationError
	var persistErr *domain.PersistenceError

	switch {
	case errors.As(err, &cfgErr):
		reqID, _ := c.Locals("requestid").(string)
		return c.Status(422).JSON(APIError{
			Status:    422,
			Code:      "invalid_configuration",
			Message:   cfgErr.Error(),
			Field:     cfgErr.Field,
			RequestID: reqID,
		})
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, notFoundMsg)
	case errors.As(err, &persistErr):
		LoggerFromCtx(c.UserContext()).Error("persistence failure",
			"op", persistErr.Op, "project_id", persistErr.ProjectID, "error", persistErr.Err)
		return newError(c, 502, "persistence_error", persistErr.Error())
	case errors.Is(err, usecases.ErrStorageUnavailable):
		return newError(c, 503, "storage_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", "request timed out")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, err.Error())
	}
}
