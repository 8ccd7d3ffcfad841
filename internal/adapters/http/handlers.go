package http

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"

	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/usecases"
)

// ListProjectsHandler returns a page of projects.
func ListProjectsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c)

		projects, total, err := deps.Projects.List(c.UserContext(), limit, offset)
		if err != nil {
			return errFrom(c, err, "projects not found")
		}
		if projects == nil {
			projects = []domain.Project{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: projects, Pagination: pg})
	}
}

// GetProjectHandler returns a single project.
func GetProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		project, err := deps.Projects.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "project not found")
		}
		return c.JSON(project)
	}
}

// GetMapHandler returns the project's overlay as a viewer sees it: the
// stored config (or defaults), the final corners and a displayable URL.
func GetMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Sessions.View(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "project not found")
		}
		return c.JSON(view)
	}
}

type mapConfigRequest struct {
	ImageRef string      `json:"image_ref"`
	Corners  []orb.Point `json:"corners"`
	Opacity  *float64    `json:"opacity"`
	FlipH    bool        `json:"flip_h"`
	FlipV    bool        `json:"flip_v"`
}

// PutMapHandler replaces the project's overlay config.
func PutMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req mapConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		corners, err := domain.CornersFromPoints(req.Corners)
		if err != nil {
			return errFrom(c, err, "")
		}
		cfg := &domain.MapConfig{
			ProjectID: c.Params("id"),
			ImageRef:  req.ImageRef,
			Corners:   corners,
			Opacity:   1,
			FlipH:     req.FlipH,
			FlipV:     req.FlipV,
		}
		if req.Opacity != nil {
			cfg.Opacity = *req.Opacity
		}

		if err := deps.Maps.Save(c.UserContext(), cfg); err != nil {
			return errFrom(c, err, "project not found")
		}
		return c.JSON(cfg)
	}
}

// DeleteMapHandler removes the project's overlay. Viewers fall back to the
// default overlay afterwards.
func DeleteMapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Maps.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFrom(c, err, "project not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// FootprintHandler returns the overlay quadrilateral as a GeoJSON Feature.
func FootprintHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		feature, err := deps.Maps.Footprint(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "project not found")
		}
		data, err := feature.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// UploadImageHandler stores a multipart "file" image for a project and
// returns its reference and dimensions.
func UploadImageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := deps.Projects.GetByID(c.UserContext(), c.Params("id")); err != nil {
			return errFrom(c, err, "project not found")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return errBadRequest(c, "multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return errBadRequest(c, "unreadable upload")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return errBadRequest(c, "unreadable upload")
		}

		info, err := deps.Uploads.Upload(c.UserContext(), fh.Header.Get(fiber.HeaderContentType), data)
		if err != nil {
			return errFrom(c, err, "")
		}
		LoggerFromCtx(c.UserContext()).Info("overlay image uploaded",
			"project_id", c.Params("id"), "ref", info.Ref, "bytes", info.Size)
		return c.Status(fiber.StatusCreated).JSON(info)
	}
}

// ResolveImageHandler turns an image reference into a displayable URL.
// Unresolvable references yield the placeholder.
func ResolveImageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref := c.Query("ref")
		if ref == "" {
			return errBadRequest(c, "ref query parameter is required")
		}
		// Local handles issued here are left to expire.
		res, err := deps.Images.ResolveOrPlaceholder(c.UserContext(), ref)
		if err != nil {
			return errFrom(c, err, "")
		}
		return c.JSON(fiber.Map{
			"ref":         ref,
			"url":         res.URL,
			"placeholder": res.URL == deps.Images.Placeholder(),
		})
	}
}

// LegacySignedURLHandler serves GET /api/storage/signed-url?key=, the
// pre-v1 way of reading an S3 object.
func LegacySignedURLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Query("key")
		if key == "" {
			return errBadRequest(c, "key query parameter is required")
		}
		res, err := deps.Images.Resolve(c.UserContext(), usecases.RefPrefixS3+key)
		if errors.Is(err, usecases.ErrStorageUnavailable) {
			return errFrom(c, err, "")
		}
		if err != nil {
			return errInternal(c, "failed to generate signed URL")
		}
		return c.JSON(fiber.Map{"url": res.URL})
	}
}

type presignRequest struct {
	ContentType string `json:"content_type"`
	Prefix      string `json:"prefix"`
}

// PresignUploadHandler issues a presigned PUT URL for a direct upload.
func PresignUploadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req presignRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ticket, err := deps.Uploads.PresignUpload(c.UserContext(), req.ContentType, req.Prefix)
		if err != nil {
			return errFrom(c, err, "")
		}
		return c.Status(fiber.StatusCreated).JSON(ticket)
	}
}

// BlobHandler streams a locally stored image behind a live handle.
func BlobHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Blobs == nil {
			return errNotFound(c, "blob not found")
		}
		data, contentType, err := deps.Blobs.Read(c.Params("token"))
		if err != nil {
			return errFrom(c, err, "blob not found")
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "private, max-age=300")
		return c.Send(data)
	}
}
