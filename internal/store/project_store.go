package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/taskd/internal/model"
)

const projectColumns = "id, name, description, owner_id, budget, created_at"

// CreateProject inserts a new project and returns its assigned ID.
func (s *SQLiteStore) CreateProject(ctx context.Context, project model.Project) (int64, error) {
	if strings.TrimSpace(project.Name) == "" {
		return 0, fmt.Errorf("project name must not be empty")
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, description, owner_id, budget, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		project.Name, project.Description, project.OwnerID, project.Budget, project.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading project id: %w", err)
	}
	return id, nil
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project

	err := s.db.GetContext(ctx, &project,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting project %d: %w", id, notFound(err))
	}
	return &project, nil
}

// ListProjects returns projects ordered by ID. A positive ownerID limits
// the result to projects owned by that user.
func (s *SQLiteStore) ListProjects(ctx context.Context, ownerID int64) ([]model.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects"
	var args []interface{}
	if ownerID > 0 {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY id"

	projects := []model.Project{}
	if err := s.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}

// UpdateProject overwrites the editable fields of a project. The owner and
// creation time are kept.
func (s *SQLiteStore) UpdateProject(ctx context.Context, project model.Project) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, description = ?, budget = ? WHERE id = ?",
		project.Name, project.Description, project.Budget, project.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project %d: %w", project.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("updating project %d: %w", project.ID, ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project together with its tasks.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ?", id); err != nil {
		return fmt.Errorf("deleting tasks of project %d: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("deleting project %d: %w", id, ErrNotFound)
	}

	return tx.Commit()
}
