package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
)

// Create validates and stores a new task, returning it as persisted. A
// blank or unrecognised status becomes PENDING.
func (s *Service) Create(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return nil, fmt.Errorf("task name must not be blank: %w", model.ErrInvalidInput)
	}
	if err := s.checkRefs(ctx, task.ProjectID, task.ResponsibleID); err != nil {
		return nil, err
	}
	if !model.KnownStatus(task.Status) {
		task.Status = model.StatusPending
	}
	task.CreatedAt = time.Time{}

	id, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("task_id", id).
		Int64("project_id", task.ProjectID).
		Int64("responsible_id", task.ResponsibleID).
		Msg("task created")

	return s.store.GetTaskByID(ctx, id)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*model.Task, error) {
	if id <= 0 {
		return nil, fmt.Errorf("task id %d: %w", id, model.ErrInvalidInput)
	}
	return s.store.GetTaskByID(ctx, id)
}

// ListByProject returns the tasks of a project. A non-positive ID yields
// an empty list.
func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]model.Task, error) {
	if projectID <= 0 {
		return []model.Task{}, nil
	}
	return s.store.ListTasksByProject(ctx, projectID)
}

// ListByResponsible returns the tasks owned by a user. A non-positive ID
// yields an empty list.
func (s *Service) ListByResponsible(ctx context.Context, userID int64) ([]model.Task, error) {
	if userID <= 0 {
		return []model.Task{}, nil
	}
	return s.store.ListTasksByResponsible(ctx, userID)
}

// Update overwrites name, description, deadline, project and responsible
// user. Creation time, status and comments are preserved.
func (s *Service) Update(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if task.ID <= 0 {
		return nil, fmt.Errorf("task id %d: %w", task.ID, model.ErrInvalidInput)
	}
	if task.Name == "" {
		return nil, fmt.Errorf("task name must not be blank: %w", model.ErrInvalidInput)
	}
	if err := s.checkRefs(ctx, task.ProjectID, task.ResponsibleID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Info().Int64("task_id", task.ID).Msg("task updated")

	return s.store.GetTaskByID(ctx, task.ID)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("task id %d: %w", id, model.ErrInvalidInput)
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("task_id", id).Msg("task deleted")
	return nil
}

// checkRefs requires an existing project and responsible user.
func (s *Service) checkRefs(ctx context.Context, projectID, responsibleID int64) error {
	if projectID <= 0 {
		return fmt.Errorf("project id %d: %w", projectID, model.ErrInvalidInput)
	}
	if responsibleID <= 0 {
		return fmt.Errorf("responsible id %d: %w", responsibleID, model.ErrInvalidInput)
	}

	if _, err := s.store.GetProjectByID(ctx, projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("project %d does not exist: %w", projectID, model.ErrInvalidInput)
		}
		return err
	}
	if _, err := s.store.GetUserByID(ctx, responsibleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %d does not exist: %w", responsibleID, model.ErrInvalidInput)
		}
		return err
	}
	return nil
}
