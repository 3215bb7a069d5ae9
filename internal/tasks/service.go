// Package tasks validates task operations and runs their side effects,
// such as notifying the owner of a status change.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/notify"
)

// Store is the subset of persistence the service needs.
type Store interface {
	CreateTask(ctx context.Context, task model.Task) (int64, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]model.Task, error)
	ListTasksByResponsible(ctx context.Context, userID int64) ([]model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	UpdateTaskStatus(ctx context.Context, id int64, status, comment string) error
	DeleteTask(ctx context.Context, id int64) error
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// StatusNotifier is told about every persisted status change.
type StatusNotifier interface {
	Notify(ctx context.Context, task model.Task, previousStatus string) notify.Report
}

// Service updates tasks.
type Service struct {
	store    Store
	notifier StatusNotifier
	log      zerolog.Logger
}

// NewService returns a Service. notifier may be nil.
func NewService(store Store, notifier StatusNotifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "tasks").Logger(),
	}
}

// UpdateStatus sets a task's status, appends comment to its log when
// non-blank, then notifies the owner. It returns the updated task.
// Notification problems never fail the update.
func (s *Service) UpdateStatus(
	ctx context.Context,
	id int64,
	status, comment string,
) (*model.Task, error) {
	status = strings.TrimSpace(status)
	if id <= 0 {
		return nil, fmt.Errorf("task id %d: %w", id, model.ErrInvalidInput)
	}
	if status == "" {
		return nil, fmt.Errorf("status must not be blank: %w", model.ErrInvalidInput)
	}

	current, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := current.Status

	if err := s.store.UpdateTaskStatus(ctx, id, status, comment); err != nil {
		return nil, err
	}

	updated, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("task_id", id).
		Str("from", previous).
		Str("to", updated.Status).
		Msg("task status updated")

	if s.notifier != nil {
		s.notifier.Notify(ctx, *updated, previous)
	}

	return updated, nil
}
