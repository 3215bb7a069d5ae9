package store

import (
	"context"

	"github.com/nhle/taskd/internal/model"
)

// TaskStore persists tasks and their status history.
type TaskStore interface {
	CreateTask(ctx context.Context, task model.Task) (int64, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id int64, status, comment string) error
	ListTasksByProject(ctx context.Context, projectID int64) ([]model.Task, error)
	ListTasksByResponsible(ctx context.Context, userID int64) ([]model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id int64) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	CreateProject(ctx context.Context, project model.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*model.Project, error)
	ListProjects(ctx context.Context, ownerID int64) ([]model.Project, error)
	UpdateProject(ctx context.Context, project model.Project) error
	DeleteProject(ctx context.Context, id int64) error
}

// CostStore persists cost entries.
type CostStore interface {
	CreateCost(ctx context.Context, cost model.Cost) (int64, error)
	ListCostsByReference(ctx context.Context, refType model.CostRef, refID int64) ([]model.Cost, error)
	ListCostsByUser(ctx context.Context, userID int64) ([]model.Cost, error)
	TotalCostsByKind(ctx context.Context, refType model.CostRef, refID int64, kind model.CostKind) (float64, error)
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID int64, id string) error
}

// Store defines the full persistence interface used by the service.
type Store interface {
	// === Tasks ===

	TaskStore

	// === Users ===

	UserStore

	// === Projects ===

	ProjectStore

	// === Costs ===

	CostStore

	// === Notifications ===

	NotificationStore

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
