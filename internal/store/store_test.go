package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/tests/testutil"
)

func TestTaskRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now()

	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	due := testutil.At(now, 6*time.Hour)
	task := testutil.SeedTask(t, s, owner, "Write report", model.StatusPending, due)

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Name)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, owner.ID, got.ResponsibleID)
	require.NotNil(t, got.DueAt)
	assert.WithinDuration(t, *due, *got.DueAt, time.Second)
}

func TestTaskWithoutDeadline(t *testing.T) {
	s := testutil.NewTestStore(t)
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")

	task := testutil.SeedTask(t, s, owner, "Someday", "", nil)

	assert.Nil(t, task.DueAt)
	assert.Equal(t, model.StatusPending, task.Status)
}

func TestListTasks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	testutil.SeedTask(t, s, owner, "one", model.StatusPending, nil)
	testutil.SeedTask(t, s, owner, "two", model.StatusCompleted, nil)

	tasks, err = s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "one", tasks[0].Name)
	assert.Equal(t, "two", tasks[1].Name)
}

func TestGetTaskByIDNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetTaskByID(context.Background(), 42)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateTaskStatusAppendsComment(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, owner, "Review", model.StatusPending, nil)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, model.StatusInProgress, "started"))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, model.StatusCompleted, "   "))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, model.StatusCompleted, "done"))

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "\nstarted\ndone", got.Comments)
}

func TestUpdateTaskStatusMissingTask(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.UpdateTaskStatus(context.Background(), 7, model.StatusCompleted, "")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUserLookup(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	u := testutil.SeedUser(t, s, "Bruno", "bruno@example.com")

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bruno", got.Name)
	assert.Equal(t, "bruno@example.com", got.Email)
	assert.NotEqual(t, "secret", got.Password, "password must be stored hashed")

	_, err = s.GetUserByID(ctx, u.ID+100)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUserWithoutEmail(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	a := testutil.SeedUser(t, s, "NoMail", "")
	b := testutil.SeedUser(t, s, "AlsoNoMail", "")

	got, err := s.GetUserByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.HasEmail())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAuthenticate(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, s, "Carla", "carla@example.com")

	got, err := s.Authenticate(ctx, "carla@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "carla@example.com", "wrong")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
}

func TestProjectRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Dora", "dora@example.com")

	id, err := s.CreateProject(ctx, model.Project{Name: "Apollo", OwnerID: owner.ID})
	require.NoError(t, err)

	p, err := s.GetProjectByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, owner.ID, p.OwnerID)

	_, err = s.CreateProject(ctx, model.Project{Name: "  "})
	assert.Error(t, err)
}

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ana := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	ben := testutil.SeedUser(t, s, "Ben", "ben@example.com")

	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		UserID:    ana.ID,
		TaskID:    1,
		Message:   "older",
		CreatedAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		UserID:  ana.ID,
		TaskID:  1,
		Kind:    "digest",
		Message: "newer",
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		UserID:  ben.ID,
		Message: "for ben",
	}))

	unread, err := s.GetUnreadNotifications(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, "newer", unread[0].Message)
	assert.Equal(t, model.NotificationKind("digest"), unread[0].Kind)
	assert.Equal(t, model.NotificationStatusChange, unread[1].Kind)
	assert.NotEmpty(t, unread[0].ID)

	// Ben cannot mark Ana's notification.
	err = s.MarkNotificationRead(ctx, ben.ID, unread[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.MarkNotificationRead(ctx, ana.ID, unread[0].ID))

	unread, err = s.GetUnreadNotifications(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "older", unread[0].Message)
}

func TestListTasksByProjectAndResponsible(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ana := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	ben := testutil.SeedUser(t, s, "Ben", "ben@example.com")

	first := testutil.SeedTask(t, s, ana, "first", model.StatusPending, nil)
	_, err := s.CreateTask(ctx, model.Task{Name: "second", ProjectID: first.ProjectID, ResponsibleID: ben.ID})
	require.NoError(t, err)
	testutil.SeedTask(t, s, ben, "elsewhere", model.StatusPending, nil)

	byProject, err := s.ListTasksByProject(ctx, first.ProjectID)
	require.NoError(t, err)
	require.Len(t, byProject, 2)
	assert.Equal(t, "first", byProject[0].Name)
	assert.Equal(t, "second", byProject[1].Name)

	byBen, err := s.ListTasksByResponsible(ctx, ben.ID)
	require.NoError(t, err)
	require.Len(t, byBen, 2)
	assert.Equal(t, "second", byBen[0].Name)
	assert.Equal(t, "elsewhere", byBen[1].Name)

	none, err := s.ListTasksByProject(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateTaskKeepsCreationAndStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, owner, "Draft", model.StatusInProgress, nil)

	due := testutil.At(time.Now(), 48*time.Hour)
	task.Name = "Final"
	task.DueAt = due
	task.Status = model.StatusCompleted
	task.CreatedAt = time.Now().Add(time.Hour)
	require.NoError(t, s.UpdateTask(ctx, task))

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Name)
	assert.Equal(t, model.StatusInProgress, got.Status)
	require.NotNil(t, got.DueAt)
	assert.WithinDuration(t, *due, *got.DueAt, time.Second)
	assert.True(t, got.CreatedAt.Before(task.CreatedAt))

	err = s.UpdateTask(ctx, model.Task{ID: 999, Name: "ghost"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, owner, "Temp", model.StatusPending, nil)

	require.NoError(t, s.DeleteTask(ctx, task.ID))

	_, err := s.GetTaskByID(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, task.ID), store.ErrNotFound)
}

func TestCreateTaskRejectsUnknownProject(t *testing.T) {
	s := testutil.NewTestStore(t)
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")

	_, err := s.CreateTask(context.Background(), model.Task{Name: "orphan", ProjectID: 42, ResponsibleID: owner.ID})
	assert.Error(t, err)
}

func TestProjectListUpdateDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ana := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	ben := testutil.SeedUser(t, s, "Ben", "ben@example.com")

	apollo, err := s.CreateProject(ctx, model.Project{Name: "Apollo", OwnerID: ana.ID, Budget: 1500})
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, model.Project{Name: "Gemini", OwnerID: ben.ID})
	require.NoError(t, err)

	all, err := s.ListProjects(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListProjects(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Apollo", mine[0].Name)
	assert.Equal(t, 1500.0, mine[0].Budget)

	require.NoError(t, s.UpdateProject(ctx, model.Project{ID: apollo, Name: "Apollo II", Budget: 2000, OwnerID: ben.ID}))
	p, err := s.GetProjectByID(ctx, apollo)
	require.NoError(t, err)
	assert.Equal(t, "Apollo II", p.Name)
	assert.Equal(t, 2000.0, p.Budget)
	assert.Equal(t, ana.ID, p.OwnerID)

	taskID, err := s.CreateTask(ctx, model.Task{Name: "Launch", ProjectID: apollo, ResponsibleID: ana.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(ctx, apollo))
	_, err = s.GetProjectByID(ctx, apollo)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetTaskByID(ctx, taskID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteProject(ctx, apollo), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, model.Project{ID: apollo, Name: "x"}), store.ErrNotFound)
}

func TestCosts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ana := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, ana, "Build", model.StatusPending, nil)

	entries := []model.Cost{
		{RefType: model.CostRefTask, RefID: task.ID, Amount: 500, Kind: model.CostAdvance, RecordedBy: ana.ID, Description: "deposit"},
		{RefType: model.CostRefTask, RefID: task.ID, Amount: 120.5, Kind: model.CostDelay, RecordedBy: ana.ID},
		{RefType: model.CostRefTask, RefID: task.ID, Amount: 80, Kind: model.CostAdvance, RecordedBy: ana.ID},
		{RefType: model.CostRefProject, RefID: task.ProjectID, Amount: 300, Kind: model.CostPlannedExpense, RecordedBy: ana.ID},
	}
	for i, c := range entries {
		c.CreatedAt = time.Now().Add(time.Duration(i) * time.Minute)
		_, err := s.CreateCost(ctx, c)
		require.NoError(t, err)
	}

	byTask, err := s.ListCostsByReference(ctx, model.CostRefTask, task.ID)
	require.NoError(t, err)
	require.Len(t, byTask, 3)
	assert.Equal(t, "deposit", byTask[0].Description)
	assert.Equal(t, model.CostAdvance, byTask[0].Kind)

	byUser, err := s.ListCostsByUser(ctx, ana.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 4)

	advances, err := s.TotalCostsByKind(ctx, model.CostRefTask, task.ID, model.CostAdvance)
	require.NoError(t, err)
	assert.InDelta(t, 580, advances, 0.001)

	planned, err := s.TotalCostsByKind(ctx, model.CostRefTask, task.ID, model.CostPlannedExpense)
	require.NoError(t, err)
	assert.Zero(t, planned)

	none, err := s.ListCostsByReference(ctx, model.CostRefProject, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
