package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/ports"
	"github.com/plotperfect/plotmap/internal/pkg/geospatial"
	"github.com/plotperfect/plotmap/internal/pkg/metrics"
	"github.com/plotperfect/plotmap/internal/pkg/telemetry"
)

const mapConfigCacheTTL = 300

// MapConfigService loads and stores project overlay configs.
type MapConfigService struct {
	configs   ports.MapConfigRepository
	projects  ports.ProjectRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewMapConfigService creates a new MapConfigService. cache and publisher
// may be nil.
func NewMapConfigService(
	configs ports.MapConfigRepository,
	projects ports.ProjectRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *MapConfigService {
	return &MapConfigService{
		configs:   configs,
		projects:  projects,
		cache:     cache,
		publisher: publisher,
		now:       time.Now,
	}
}

func mapConfigCacheKey(projectID string) string {
	return "mapconfig:" + projectID
}

// Load returns the project's overlay config, or the default one when none
// has been saved. It fails with domain.ErrNotFound for unknown projects.
func (s *MapConfigService) Load(ctx context.Context, projectID string) (*domain.MapConfig, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapConfigLoad,
		trace.WithAttributes(attribute.String(telemetry.AttrProjectID, projectID)))
	defer span.End()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, mapConfigCacheKey(projectID)); err == nil {
			var cfg domain.MapConfig
			if err := json.Unmarshal(data, &cfg); err == nil {
				metrics.CacheHits.WithLabelValues("mapconfig").Inc()
				return &cfg, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("mapconfig").Inc()
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, s.fail(span, "load", projectID, err)
	}

	cfg, err := s.configs.Get(ctx, projectID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cfg = domain.DefaultMapConfig(projectID, project.LayoutImage)
	case err != nil:
		return nil, s.fail(span, "load", projectID, err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(cfg); err == nil {
			_ = s.cache.Set(ctx, mapConfigCacheKey(projectID), data, mapConfigCacheTTL)
		}
	}
	return cfg, nil
}

// Save validates and stores cfg, replacing any existing config.
func (s *MapConfigService) Save(ctx context.Context, cfg *domain.MapConfig) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapConfigSave,
		trace.WithAttributes(attribute.String(telemetry.AttrProjectID, cfg.ProjectID)))
	defer span.End()

	if err := cfg.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if _, err := s.projects.GetByID(ctx, cfg.ProjectID); err != nil {
		return s.fail(span, "save", cfg.ProjectID, err)
	}

	cfg.IsDefault = false
	cfg.UpdatedAt = s.now().UTC()
	err := s.configs.Save(ctx, cfg)
	metrics.MapConfigWrites.WithLabelValues("save", metrics.Outcome(err)).Inc()
	if err != nil {
		return s.fail(span, "save", cfg.ProjectID, err)
	}

	s.invalidate(ctx, cfg.ProjectID)
	s.publish(ctx, &domain.MapConfigEvent{
		Type:      domain.MapConfigSaved,
		ProjectID: cfg.ProjectID,
		Config:    cfg,
		Timestamp: cfg.UpdatedAt,
	})
	return nil
}

// Delete removes the project's overlay. Deleting a missing config succeeds.
func (s *MapConfigService) Delete(ctx context.Context, projectID string) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapConfigDelete,
		trace.WithAttributes(attribute.String(telemetry.AttrProjectID, projectID)))
	defer span.End()

	err := s.configs.Delete(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
	}
	metrics.MapConfigWrites.WithLabelValues("delete", metrics.Outcome(err)).Inc()
	if err != nil {
		return s.fail(span, "delete", projectID, err)
	}

	s.invalidate(ctx, projectID)
	s.publish(ctx, &domain.MapConfigEvent{
		Type:      domain.MapConfigDeleted,
		ProjectID: projectID,
		Timestamp: s.now().UTC(),
	})
	return nil
}

// Footprint returns the overlay outline as a GeoJSON feature with edge
// lengths in meters.
func (s *MapConfigService) Footprint(ctx context.Context, projectID string) (*geojson.Feature, error) {
	cfg, err := s.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return FootprintOf(cfg), nil
}

// FootprintOf builds the GeoJSON outline of a config: a closed polygon in
// corner order, its bounding box, and the four edge lengths in meters.
func FootprintOf(cfg *domain.MapConfig) *geojson.Feature {
	f := geojson.NewFeature(cfg.Corners.Polygon())
	f.BBox = geojson.NewBBox(cfg.Corners.Bound())
	if cfg.ProjectID != "" {
		f.Properties["project_id"] = cfg.ProjectID
	}
	if cfg.ImageRef != "" {
		f.Properties["image_ref"] = cfg.ImageRef
	}
	f.Properties["opacity"] = cfg.Opacity
	f.Properties["is_default"] = cfg.IsDefault
	f.Properties["edge_lengths_m"] = geospatial.EdgeLengths(cfg.Corners[:]...)
	return f
}

// fail converts repository errors: not-found passes through, everything
// else becomes a PersistenceError.
func (s *MapConfigService) fail(span trace.Span, op, projectID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return &domain.PersistenceError{Op: op, ProjectID: projectID, Err: err}
}

func (s *MapConfigService) invalidate(ctx context.Context, projectID string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, mapConfigCacheKey(projectID))
	}
}

func (s *MapConfigService) publish(ctx context.Context, event *domain.MapConfigEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMapConfigEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish map config event failed",
			"type", event.Type, "project_id", event.ProjectID, "error", err)
	}
}
