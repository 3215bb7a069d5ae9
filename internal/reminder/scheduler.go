// Package reminder periodically emails owners of tasks whose deadline
// is approaching.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/notify"
	"github.com/nhle/taskd/internal/store"
)

const (
	DefaultInterval    = 6 * time.Hour
	DefaultWindow      = 24 * time.Hour
	DefaultItemTimeout = 30 * time.Second
	DefaultConcurrency = 4
)

// TaskLister returns every task in the system.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// Config tunes the sweep. Zero fields take the Default* values.
type Config struct {
	Interval    time.Duration
	Window      time.Duration
	ItemTimeout time.Duration
	Concurrency int
}

// ConfigFrom converts the file/env configuration.
func ConfigFrom(c model.ReminderConfig) Config {
	return Config{
		Interval:    c.Interval(),
		Window:      c.Window(),
		ItemTimeout: c.ItemTimeout(),
		Concurrency: c.Concurrency,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = DefaultItemTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Eligible reports whether task should be reminded at now: it has a
// deadline in (now, now+window] and is not COMPLETED. Any other status,
// recognised or not, is eligible.
func Eligible(task model.Task, now time.Time, window time.Duration) bool {
	left, ok := task.TimeUntilDue(now)
	if !ok {
		return false
	}
	return left > 0 && left <= window && !task.IsCompleted()
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned  int
	Eligible int
	Sent     int
	Skipped  int
	Failed   int
}

type itemResult int

const (
	itemSent itemResult = iota
	itemSkipped
	itemFailed
)

// Scheduler owns the periodic sweep. Start and Stop may be called from
// any goroutine.
type Scheduler struct {
	tasks  TaskLister
	users  notify.UserFinder
	mailer notify.Mailer
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	loops  atomic.Int32
	sweeps atomic.Int64
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source used for eligibility and hours left.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a stopped Scheduler.
func New(
	tasks TaskLister,
	users notify.UserFinder,
	mailer notify.Mailer,
	cfg Config,
	log zerolog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		tasks:  tasks,
		users:  users,
		mailer: mailer,
		cfg:    cfg.withDefaults(),
		log:    log.With().Str("component", "reminder").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a sweep immediately and then every Interval. Calling Start
// on a running scheduler replaces the current schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done)
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("reminder schedule started")
}

// Stop cancels the schedule and waits for the loop to exit. A sweep in
// progress sees a cancelled context. Stop is a no-op when not started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.log.Info().Msg("reminder schedule stopped")
	}
}

// Running reports whether a schedule is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	s.loops.Add(1)
	defer func() {
		s.loops.Add(-1)
		close(done)
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Sweep(ctx)
		}
	}
}

// Sweep evaluates every task once and emails the owners of eligible ones.
// Failures are logged per task and never abort the sweep.
func (s *Scheduler) Sweep(ctx context.Context) (result SweepResult) {
	s.sweeps.Add(1)
	started := s.now()
	log := s.log.With().Time("sweep_at", started).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("reminder sweep aborted")
		}
	}()

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing tasks for reminders failed")
		return result
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, task := range tasks {
		result.Scanned++
		if !Eligible(task, started, s.cfg.Window) {
			continue
		}
		result.Eligible++

		if ctx.Err() != nil {
			result.Skipped++
			continue
		}

		task := task // per-iteration copy (go 1.21 loop variable semantics)
		g.Go(func() error {
			r := s.remind(ctx, task)
			mu.Lock()
			defer mu.Unlock()
			switch r {
			case itemSent:
				result.Sent++
			case itemSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("scanned", result.Scanned).
		Int("eligible", result.Eligible).
		Int("sent", result.Sent).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("took", s.now().Sub(started)).
		Msg("reminder sweep finished")

	return result
}

// remind emails the owner of one eligible task.
func (s *Scheduler) remind(ctx context.Context, task model.Task) (res itemResult) {
	log := s.log.With().Int64("task_id", task.ID).Int64("user_id", task.ResponsibleID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("reminder panicked")
			res = itemFailed
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	user, err := s.users.GetUserByID(ctx, task.ResponsibleID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user == nil) {
		log.Debug().Msg("task owner not found, reminder skipped")
		return itemSkipped
	}
	if err != nil {
		log.Error().Err(err).Msg("resolving task owner failed")
		return itemFailed
	}
	if !user.HasEmail() {
		log.Debug().Msg("task owner has no email, reminder skipped")
		return itemSkipped
	}

	hours := notify.HoursUntil(*task.DueAt, s.now())
	out := notify.Attempt(notify.ChannelEmail, func() error {
		if s.mailer == nil {
			return fmt.Errorf("no mailer configured")
		}
		return s.mailer.Send(ctx, user.Email,
			notify.ReminderSubject(task),
			notify.ReminderMessage(*user, task, hours),
		)
	})
	out.Log(log)

	if out.Err != nil {
		return itemFailed
	}
	log.Info().Int("hours_left", hours).Msg("reminder sent")
	return itemSent
}
