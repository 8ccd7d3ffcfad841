package usecases

import (
	"context"
	"strings"

	"github.com/plotperfect/plotmap/internal/core/domain"
	"github.com/plotperfect/plotmap/internal/core/ports"
)

// ProjectService handles project lookups.
type ProjectService struct {
	projects ports.ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects ports.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// List returns a page of projects and the total count.
func (s *ProjectService) List(ctx context.Context, limit, offset int) ([]domain.Project, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	projects, total, err := s.projects.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range projects {
		if heavyImageRef(projects[i].LayoutImage) {
			projects[i].LayoutImage = ""
		}
	}
	return projects, total, nil
}

// GetByID returns a single project.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// maxListedImageRef bounds the layout image refs returned by List.
const maxListedImageRef = 50000

// heavyImageRef reports refs that inline image data or point into browser
// storage. They are only useful from GetByID.
func heavyImageRef(ref string) bool {
	return strings.HasPrefix(ref, "data:image/") ||
		strings.HasPrefix(ref, legacyLocalPrefix) ||
		len(ref) > maxListedImageRef
}
