// Package notify fans a task status change out to the owner: an in-app
// record, an email and a push to any open live session.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/store"
)

// UserFinder resolves a user by ID. Absence is reported as store.ErrNotFound.
type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// NotificationWriter persists in-app notifications.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

// Mailer sends one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SessionLookup finds a user's open live session.
type SessionLookup interface {
	Lookup(userID int64) (live.Session, bool)
}

// Notifier delivers status change notifications. It never returns an
// error; every failure is logged and reflected in the Report.
type Notifier struct {
	users    UserFinder
	store    NotificationWriter
	mailer   Mailer
	sessions SessionLookup
	log      zerolog.Logger
	now      func() time.Time
}

// Option customises a Notifier.
type Option func(*Notifier)

// WithClock overrides the time source used for notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New returns a Notifier. mailer and sessions may be nil to disable those
// channels.
func New(
	users UserFinder,
	notifications NotificationWriter,
	mailer Mailer,
	sessions SessionLookup,
	log zerolog.Logger,
	opts ...Option,
) *Notifier {
	n := &Notifier{
		users:    users,
		store:    notifications,
		mailer:   mailer,
		sessions: sessions,
		log:      log.With().Str("component", "notifier").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify tells task's owner that it moved from previousStatus to its
// current status. It must be called after the new status is persisted.
func (n *Notifier) Notify(ctx context.Context, task model.Task, previousStatus string) (report Report) {
	log := n.log.With().
		Int64("task_id", task.ID).
		Int64("user_id", task.ResponsibleID).
		Str("from", previousStatus).
		Str("to", task.Status).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("notify panicked: %v", r)
			log.Error().Err(report.Err).Msg("status change notification aborted")
		}
	}()

	report.UserID = task.ResponsibleID

	user, err := n.users.GetUserByID(ctx, task.ResponsibleID)
	if err == nil && user == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		report.Err = err
		if errors.Is(err, store.ErrNotFound) {
			log.Warn().Msg("task owner not found, notification dropped")
		} else {
			log.Error().Err(err).Msg("resolving task owner failed")
		}
		return report
	}

	report.Message = StatusChangeMessage(task, previousStatus)

	report.Outcomes = append(report.Outcomes, Attempt(ChannelStore, func() error {
		return n.store.CreateNotification(ctx, model.Notification{
			UserID:    user.ID,
			TaskID:    task.ID,
			Kind:      model.NotificationStatusChange,
			Message:   report.Message,
			CreatedAt: n.now(),
		})
	}))

	if n.mailer != nil && user.HasEmail() {
		report.Outcomes = append(report.Outcomes, Attempt(ChannelEmail, func() error {
			return n.mailer.Send(ctx, user.Email, StatusChangeSubject(task), report.Message)
		}))
	} else {
		report.Outcomes = append(report.Outcomes, Skip(ChannelEmail))
	}

	var session live.Session
	if n.sessions != nil {
		session, _ = n.sessions.Lookup(user.ID)
	}
	if session != nil {
		report.Outcomes = append(report.Outcomes, Attempt(ChannelLive, func() error {
			return session.Push(report.Message)
		}))
	} else {
		report.Outcomes = append(report.Outcomes, Skip(ChannelLive))
	}

	for _, o := range report.Outcomes {
		o.Log(log)
	}
	log.Info().Msg("status change notification processed")

	return report
}
