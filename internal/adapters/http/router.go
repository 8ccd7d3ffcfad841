package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/plotperfect/plotmap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacySunset is when the pre-v1 storage routes go away.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 300 requests per minute per IP. Marker drags arrive
	// in bursts, so this is looser than a read-only API would need.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{Path: "/api/storage/signed-url", SunsetDate: legacySunset, Alternative: "/v1/images/resolve"},
	}))

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/projects", timeout.NewWithContext(ListProjectsHandler(deps), requestTimeout))
	v1.Get("/projects/:id", timeout.NewWithContext(GetProjectHandler(deps), requestTimeout))

	// Overlay config
	v1.Get("/projects/:id/map", timeout.NewWithContext(GetMapHandler(deps), requestTimeout))
	v1.Put("/projects/:id/map", timeout.NewWithContext(PutMapHandler(deps), requestTimeout))
	v1.Delete("/projects/:id/map", timeout.NewWithContext(DeleteMapHandler(deps), requestTimeout))
	v1.Get("/projects/:id/map/footprint", timeout.NewWithContext(FootprintHandler(deps), requestTimeout))
	v1.Post("/projects/:id/map/image", timeout.NewWithContext(UploadImageHandler(deps), 60*time.Second))

	// Alignment sessions
	v1.Post("/projects/:id/alignment", timeout.NewWithContext(OpenSessionHandler(deps), requestTimeout))
	v1.Get("/alignment/:sid", timeout.NewWithContext(GetSessionHandler(deps), requestTimeout))
	v1.Patch("/alignment/:sid", timeout.NewWithContext(UpdateSessionHandler(deps), requestTimeout))
	v1.Delete("/alignment/:sid", timeout.NewWithContext(CloseSessionHandler(deps), requestTimeout))
	v1.Post("/alignment/:sid/commit", timeout.NewWithContext(CommitSessionHandler(deps), requestTimeout))

	// Images and storage
	v1.Get("/images/resolve", timeout.NewWithContext(ResolveImageHandler(deps), requestTimeout))
	v1.Get("/blobs/:token", BlobHandler(deps))
	v1.Post("/storage/presign-upload", timeout.NewWithContext(PresignUploadHandler(deps), requestTimeout))

	// Pre-v1 signed URL route
	app.Get("/api/storage/signed-url", timeout.NewWithContext(LegacySignedURLHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
