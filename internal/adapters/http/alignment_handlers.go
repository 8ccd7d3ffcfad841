package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plotperfect/plotmap/internal/core/usecases"
)

type openSessionRequest struct {
	Zoom float64 `json:"zoom"`
}

// OpenSessionHandler starts an alignment session for a project.
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req openSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if req.Zoom < 0 || req.Zoom > 24 {
			return errBadRequest(c, "zoom must be between 0 and 24")
		}

		view, err := deps.Sessions.Open(c.UserContext(), c.Params("id"), req.Zoom)
		if err != nil {
			return errFrom(c, err, "project not found")
		}
		LoggerFromCtx(c.UserContext()).Info("alignment session opened",
			"session_id", view.ID, "project_id", view.ProjectID)
		c.Location("/v1/alignment/" + view.ID)
		return c.Status(fiber.StatusCreated).JSON(view)
	}
}

// GetSessionHandler returns a session with a full redraw.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Sessions.Get(c.UserContext(), c.Params("sid"))
		if err != nil {
			return errFrom(c, err, "session not found")
		}
		return c.JSON(view)
	}
}

// UpdateSessionHandler applies a batch of edits. The response carries only
// the render operations needed since the previous response.
func UpdateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var upd usecases.SessionUpdate
		if err := c.BodyParser(&upd); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		view, err := deps.Sessions.Apply(c.UserContext(), c.Params("sid"), upd)
		if err != nil {
			return errFrom(c, err, "session not found")
		}
		return c.JSON(view)
	}
}

// CommitSessionHandler bakes the session's adjustment into its corners and
// saves it. A failed save leaves the session as it was.
func CommitSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, cfg, err := deps.Sessions.Commit(c.UserContext(), c.Params("sid"))
		if err != nil {
			return errFrom(c, err, "session not found")
		}
		return c.JSON(fiber.Map{
			"session": view,
			"config":  cfg,
		})
	}
}

// CloseSessionHandler discards a session without saving.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Close(c.Params("sid")); err != nil {
			return errFrom(c, err, "session not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
