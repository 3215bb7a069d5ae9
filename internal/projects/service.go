// Package projects validates and persists projects.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
)

// Store is the subset of persistence the service needs.
type Store interface {
	CreateProject(ctx context.Context, project model.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	ListProjects(ctx context.Context, ownerID int64) ([]model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, id int64) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Service manages projects.
type Service struct {
	store Store
	log   zerolog.Logger
}

// NewService returns a Service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "projects").Logger(),
	}
}

// Create stores a project owned by an existing user.
func (s *Service) Create(ctx context.Context, project model.Project) (*model.Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return nil, fmt.Errorf("project name must not be blank: %w", model.ErrInvalidInput)
	}
	if project.Budget < 0 {
		return nil, fmt.Errorf("budget must not be negative: %w", model.ErrInvalidInput)
	}
	if project.OwnerID <= 0 {
		return nil, fmt.Errorf("owner id %d: %w", project.OwnerID, model.ErrInvalidInput)
	}
	if _, err := s.store.GetUserByID(ctx, project.OwnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %d does not exist: %w", project.OwnerID, model.ErrInvalidInput)
		}
		return nil, err
	}
	project.CreatedAt = time.Time{}

	id, err := s.store.CreateProject(ctx, project)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("project_id", id).Int64("owner_id", project.OwnerID).Msg("project created")

	return s.store.GetProjectByID(ctx, id)
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id int64) (*model.Project, error) {
	if id <= 0 {
		return nil, fmt.Errorf("project id %d: %w", id, model.ErrInvalidInput)
	}
	return s.store.GetProjectByID(ctx, id)
}

// List returns every project, or only those owned by ownerID when it is
// positive.
func (s *Service) List(ctx context.Context, ownerID int64) ([]model.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// Update overwrites name, description and budget.
func (s *Service) Update(ctx context.Context, project model.Project) (*model.Project, error) {
	project.Name = strings.TrimSpace(project.Name)
	if project.ID <= 0 {
		return nil, fmt.Errorf("project id %d: %w", project.ID, model.ErrInvalidInput)
	}
	if project.Name == "" {
		return nil, fmt.Errorf("project name must not be blank: %w", model.ErrInvalidInput)
	}
	if project.Budget < 0 {
		return nil, fmt.Errorf("budget must not be negative: %w", model.ErrInvalidInput)
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	s.log.Info().Int64("project_id", project.ID).Msg("project updated")

	return s.store.GetProjectByID(ctx, project.ID)
}

// Delete removes a project and its tasks.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("project id %d: %w", id, model.ErrInvalidInput)
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("project_id", id).Msg("project deleted")
	return nil
}
