package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProjectService orchestrates validation, authorization, and persistence for projects.
type ProjectService struct {
	projects    ProjectRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProjectService constructs a project service with the provided dependencies.
func NewProjectService(projects ProjectRepository, idGenerator func() string, now func() time.Time) *ProjectService {
	return NewProjectServiceWithLogger(projects, idGenerator, now, nil)
}

// NewProjectServiceWithLogger constructs a project service with a specified logger.
func NewProjectServiceWithLogger(projects ProjectRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProjectService{projects: projects, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ProjectService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProjectService", operation, attrs...)
}

func (s *ProjectService) ready() error {
	if s == nil {
		return fmt.Errorf("ProjectService is nil")
	}
	if s.projects == nil {
		return fmt.Errorf("project repository not configured")
	}
	return nil
}

// ListProjects returns every project, newest first, to any signed-in user.
func (s *ProjectService) ListProjects(ctx context.Context, principal Principal) ([]Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return projects, nil
}

// GetProject returns a single project.
func (s *ProjectService) GetProject(ctx context.Context, principal Principal, projectID string) (Project, error) {
	if err := s.ready(); err != nil {
		return Project{}, err
	}
	if principal.UserID == "" {
		return Project{}, ErrUnauthenticated
	}
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, mapRepoError(err)
	}
	return project, nil
}

// CreateProject validates input and persists a new project for administrators.
func (s *ProjectService) CreateProject(ctx context.Context, params CreateProjectParams) (project Project, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateProject", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create project", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("project_id", project.ID).InfoContext(ctx, "project created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	name := strings.TrimSpace(params.Name)
	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if params.StartingDate.IsZero() {
		vErr.add("starting_date", "starting date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	project = Project{
		ID:           s.idGenerator(),
		Name:         name,
		StartingDate: params.StartingDate,
		CreatedBy:    params.Principal.UserID,
		CreatedAt:    s.now(),
	}
	if err = s.projects.CreateProject(ctx, project); err != nil {
		err = mapRepoError(err)
		project = Project{}
	}
	return
}

// DeleteProject removes a project with its slots and reservations.
func (s *ProjectService) DeleteProject(ctx context.Context, principal Principal, projectID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteProject", "principal_id", principal.UserID, "project_id", projectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete project", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "project deleted")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	err = mapRepoError(s.projects.DeleteProject(ctx, projectID))
	return
}
