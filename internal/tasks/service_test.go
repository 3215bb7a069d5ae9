package tasks

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/notify"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/tests/testutil"
)

type call struct {
	task     model.Task
	previous string
}

type spyNotifier struct{ calls []call }

func (s *spyNotifier) Notify(_ context.Context, task model.Task, previous string) notify.Report {
	s.calls = append(s.calls, call{task, previous})
	return notify.Report{}
}

type capturingMailer struct{ to []string }

func (m *capturingMailer) Send(_ context.Context, to, _, _ string) error {
	m.to = append(m.to, to)
	return nil
}

type capturingSession struct{ msgs []string }

func (c *capturingSession) Push(msg string) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestUpdateStatusValidatesInput(t *testing.T) {
	svc := NewService(testutil.NewTestStore(t), nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, 0, model.StatusCompleted, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, -3, model.StatusCompleted, "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, 1, "  ", "")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestUpdateStatusMissingTask(t *testing.T) {
	spy := &spyNotifier{}
	svc := NewService(testutil.NewTestStore(t), spy, zerolog.Nop())

	_, err := svc.UpdateStatus(context.Background(), 99, model.StatusCompleted, "")

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, spy.calls)
}

func TestUpdateStatusNotifiesWithPreviousStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, owner, "Deploy", model.StatusPending, nil)

	spy := &spyNotifier{}
	svc := NewService(s, spy, zerolog.Nop())

	updated, err := svc.UpdateStatus(context.Background(), task.ID, model.StatusInProgress, "picked up")
	require.NoError(t, err)

	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.Equal(t, "\npicked up", updated.Comments)

	require.Len(t, spy.calls, 1)
	assert.Equal(t, model.StatusPending, spy.calls[0].previous)
	assert.Equal(t, model.StatusInProgress, spy.calls[0].task.Status)
}

// PENDING -> COMPLETED for an owner with an email and a live session:
// one persisted notification, one mail, one push.
func TestUpdateStatusEndToEnd(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "Bea", "bea@example.com")
	task := testutil.SeedTask(t, s, owner, "Release", model.StatusPending, nil)

	mailer := &capturingMailer{}
	sess := &capturingSession{}
	reg := live.NewRegistry()
	reg.Register(owner.ID, sess)

	svc := NewService(s, notify.New(s, s, mailer, reg, zerolog.Nop()), zerolog.Nop())

	_, err := svc.UpdateStatus(ctx, task.ID, model.StatusCompleted, "")
	require.NoError(t, err)

	unread, err := s.GetUnreadNotifications(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	assert.Equal(t, []string{"bea@example.com"}, mailer.to)
	require.Len(t, sess.msgs, 1)
	assert.Contains(t, sess.msgs[0], "PENDING")
	assert.Contains(t, sess.msgs[0], "COMPLETED")
}
