package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// MapConfigRepo implements ports.MapConfigRepository. Corners are stored
// as a JSONB array of [lng, lat] pairs in role order.
type MapConfigRepo struct {
	db *DB
}

func NewMapConfigRepo(db *DB) *MapConfigRepo {
	return &MapConfigRepo{db: db}
}

func (r *MapConfigRepo) Get(ctx context.Context, projectID string) (*domain.MapConfig, error) {
	cfg := &domain.MapConfig{ProjectID: projectID}
	var corners []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT image_ref, corners, opacity, flip_h, flip_v, updated_at
		FROM map_configs WHERE project_id = $1
	`, projectID).Scan(&cfg.ImageRef, &corners, &cfg.Opacity, &cfg.FlipH, &cfg.FlipV, &cfg.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(corners, &cfg.Corners); err != nil {
		return nil, fmt.Errorf("decode corners: %w", err)
	}
	return cfg, nil
}

func (r *MapConfigRepo) Save(ctx context.Context, cfg *domain.MapConfig) error {
	corners, err := json.Marshal(cfg.Corners)
	if err != nil {
		return fmt.Errorf("encode corners: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO map_configs (project_id, image_ref, corners, opacity, flip_h, flip_v, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id) DO UPDATE SET
			image_ref = EXCLUDED.image_ref,
			corners = EXCLUDED.corners,
			opacity = EXCLUDED.opacity,
			flip_h = EXCLUDED.flip_h,
			flip_v = EXCLUDED.flip_v,
			updated_at = EXCLUDED.updated_at
	`, cfg.ProjectID, cfg.ImageRef, corners, cfg.Opacity, cfg.FlipH, cfg.FlipV, cfg.UpdatedAt)
	return err
}

func (r *MapConfigRepo) Delete(ctx context.Context, projectID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM map_configs WHERE project_id = $1`, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
