package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/reservation-desk/internal/persistence"
)

// ProjectRepository implements persistence.ProjectRepository using SQLite.
type ProjectRepository struct {
	pool *ConnectionPool
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(pool *ConnectionPool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// CreateProject inserts a new project.
func (r *ProjectRepository) CreateProject(ctx context.Context, project persistence.Project) error {
	if project.ID == "" || strings.TrimSpace(project.Name) == "" {
		return persistence.ErrConstraintViolation
	}

	var createdBy sql.NullString
	if project.CreatedBy != "" {
		createdBy = sql.NullString{String: project.CreatedBy, Valid: true}
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, starting_date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		project.ID,
		project.Name,
		formatTime(project.StartingDate),
		createdBy,
		formatTime(project.CreatedAt),
	)
	return mapError(err)
}

// GetProject retrieves a project by ID.
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT id, name, starting_date, created_by, created_at FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns every project, latest starting date first.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]persistence.Project, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, name, starting_date, created_by, created_at FROM projects ORDER BY starting_date DESC, created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	projects := make([]persistence.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project; slots and reservations cascade.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanProject(row scanner) (persistence.Project, error) {
	var (
		project      persistence.Project
		startingDate string
		createdBy    sql.NullString
		createdAt    string
	)
	if err := row.Scan(&project.ID, &project.Name, &startingDate, &createdBy, &createdAt); err != nil {
		return persistence.Project{}, mapError(err)
	}

	var err error
	if project.StartingDate, err = parseTime(startingDate); err != nil {
		return persistence.Project{}, err
	}
	if project.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Project{}, err
	}
	project.CreatedBy = createdBy.String
	return project, nil
}
