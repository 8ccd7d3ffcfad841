package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/plotperfect/plotmap/internal/adapters/blobstore"
	"github.com/plotperfect/plotmap/internal/adapters/http"
	natsadapter "github.com/plotperfect/plotmap/internal/adapters/nats"
	"github.com/plotperfect/plotmap/internal/adapters/postgres"
	"github.com/plotperfect/plotmap/internal/adapters/s3store"
	"github.com/plotperfect/plotmap/internal/adapters/valkey"
	"github.com/plotperfect/plotmap/internal/core/ports"
	"github.com/plotperfect/plotmap/internal/core/usecases"
	"github.com/plotperfect/plotmap/internal/pkg/config"
	"github.com/plotperfect/plotmap/internal/pkg/logging"
	"github.com/plotperfect/plotmap/internal/pkg/metrics"
	"github.com/plotperfect/plotmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("plotmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Optional collaborators are only assigned to their port when present,
	// so services see a nil interface rather than a nil pointer.
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer valkeyCache.Close()
		cache = valkeyCache
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Storage: S3 when a bucket is configured, local blobs always.
	var objects ports.ObjectStore
	var s3 *s3store.Store
	if cfg.Storage.Enabled() {
		s3, err = s3store.New(ctx, cfg.Storage)
		if err != nil {
			log.Fatalf("object storage: %v", err)
		}
		objects = s3
	}
	handleTTL := time.Duration(cfg.Images.LocalHandleTTL) * time.Second
	blobs := blobstore.NewOS(cfg.Storage.LocalDir, handleTTL)

	// Repos
	projectRepo := postgres.NewProjectRepo(db)
	mapConfigRepo := postgres.NewMapConfigRepo(db)

	// Use cases
	projectSvc := usecases.NewProjectService(projectRepo)
	mapSvc := usecases.NewMapConfigService(mapConfigRepo, projectRepo, cache, publisher)
	imageSvc := usecases.NewImageService(objects, blobs, cache, usecases.ImageOptions{
		PlaceholderURL: cfg.Images.PlaceholderURL,
		SignedURLTTL:   time.Duration(cfg.Images.SignedURLTTL) * time.Second,
		CacheTTL:       time.Duration(cfg.Images.CacheTTL) * time.Second,
		LocalHandleTTL: handleTTL,
	})
	uploadSvc := usecases.NewUploadService(objects, blobs, cfg.Images.MaxUploadBytes)
	sessionSvc := usecases.NewSessionService(mapSvc, imageSvc, usecases.SessionOptions{
		DefaultZoom: cfg.Alignment.DefaultZoom,
		IdleTimeout: time.Duration(cfg.Alignment.SessionIdleTTL) * time.Second,
		FitPadding:  cfg.Alignment.FitPaddingMeters,
	})

	go sessionSvc.RunSweeper(ctx, time.Minute)
	go reportPoolStats(ctx, db, 15*time.Second)

	deps := &http.Dependencies{
		Projects: projectSvc,
		Maps:     mapSvc,
		Images:   imageSvc,
		Uploads:  uploadSvc,
		Sessions: sessionSvc,
		Blobs:    blobs,
		Objects:  s3,
		NATS:     natsConn,
		DB:       db,
		Cache:    valkeyCache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Images.MaxUploadBytes + 1<<20, // upload plus multipart overhead
		AppName:      "PlotMap API",
	})
	app.Use(recover.New())
	if cfg.Log.Format == "text" {
		// Console-friendly request lines for local runs; JSON deployments
		// rely on the structured access log.
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	cancel()

	slog.Info("server stopped")
}

// reportPoolStats copies connection pool stats into the pool gauges until
// ctx is done.
func reportPoolStats(ctx context.Context, db *postgres.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
