package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedUser inserts a user and returns it with its assigned ID.
func SeedUser(t *testing.T, s *store.SQLiteStore, name, email string) model.User {
	t.Helper()

	u := model.User{Name: name, Surname: "Tester", Email: email, Password: "secret"}
	id, err := s.CreateUser(context.Background(), u)
	if err != nil {
		t.Fatalf("seeding user %s: %v", name, err)
	}
	u.ID = id
	return u
}

// SeedTask inserts a project owned by owner plus one task due at due
// (nil for no deadline) and returns the stored task.
func SeedTask(
	t *testing.T,
	s *store.SQLiteStore,
	owner model.User,
	name, status string,
	due *time.Time,
) model.Task {
	t.Helper()
	ctx := context.Background()

	projectID, err := s.CreateProject(ctx, model.Project{Name: "Project " + name, OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("seeding project: %v", err)
	}

	id, err := s.CreateTask(ctx, model.Task{
		Name:          name,
		Description:   "Description of " + name,
		DueAt:         due,
		ProjectID:     projectID,
		ResponsibleID: owner.ID,
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seeding task %s: %v", name, err)
	}

	task, err := s.GetTaskByID(ctx, id)
	if err != nil {
		t.Fatalf("reloading task %d: %v", id, err)
	}
	return *task
}

// At returns a pointer to now+d, handy for DueAt fields.
func At(now time.Time, d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}
