package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}

		// Don't override if already set
		if existing := c.GetRespHeader(fiber.HeaderCacheControl); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/alignment"):
			ttl = "no-store" // Live editing state

		case strings.HasSuffix(path, "/map") || strings.HasSuffix(path, "/map/footprint"):
			ttl = "no-cache" // Revalidate against the ETag after every save

		case strings.HasPrefix(path, "/v1/images/resolve"), strings.HasPrefix(path, "/api/storage/"):
			ttl = "private, max-age=60" // Well inside the signed URL lifetime

		case strings.HasPrefix(path, "/v1/projects"):
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}
