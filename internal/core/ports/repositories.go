package ports

import (
	"context"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// ProjectRepository reads projects. Project CRUD lives elsewhere.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, limit, offset int) ([]domain.Project, int, error)
}

// MapConfigRepository persists one overlay config per project. Get returns
// domain.ErrNotFound when the project has none; Save replaces wholesale.
type MapConfigRepository interface {
	Get(ctx context.Context, projectID string) (*domain.MapConfig, error)
	Save(ctx context.Context, cfg *domain.MapConfig) error
	Delete(ctx context.Context, projectID string) error
}
