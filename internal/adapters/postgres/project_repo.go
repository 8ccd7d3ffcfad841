package postgres

import (
	"context"

	"github.com/plotperfect/plotmap/internal/core/domain"
)

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `
	p.id, p.name, COALESCE(p.location, ''), COALESCE(p.description, ''),
	COALESCE(p.contact_details, ''), COALESCE(p.layout_image, ''),
	(m.project_id IS NOT NULL), p.created_at`

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	p := &domain.Project{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		LEFT JOIN map_configs m ON m.project_id = p.id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Location, &p.Description, &p.ContactDetails, &p.LayoutImage, &p.HasMap, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context, limit, offset int) ([]domain.Project, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects p
		LEFT JOIN map_configs m ON m.project_id = p.id
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &p.Description, &p.ContactDetails, &p.LayoutImage, &p.HasMap, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}
