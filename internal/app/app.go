// Package app wires configuration, persistence, delivery channels and the
// HTTP API into one runnable service.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/costs"
	"github.com/nhle/taskd/internal/credential"
	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/mail"
	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/notify"
	"github.com/nhle/taskd/internal/projects"
	"github.com/nhle/taskd/internal/reminder"
	"github.com/nhle/taskd/internal/server"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/internal/tasks"
)

// App holds the long-lived components of a running taskd.
type App struct {
	cfg *model.AppConfig
	log zerolog.Logger

	Store     *store.SQLiteStore
	Registry  *live.Registry
	Notifier  *notify.Notifier
	Tasks     *tasks.Service
	Projects  *projects.Service
	Costs     *costs.Service
	Scheduler *reminder.Scheduler
	Server    *server.Server
}

// Option customises New.
type Option func(*options)

type options struct {
	lookup credential.Lookup
	mailer mail.Sender
	now    func() time.Time
}

// WithSecretLookup replaces the keyring used to resolve secrets missing
// from the config.
func WithSecretLookup(lookup credential.Lookup) Option {
	return func(o *options) { o.lookup = lookup }
}

// WithMailer replaces the mail sender built from the SMTP config.
func WithMailer(m mail.Sender) Option {
	return func(o *options) { o.mailer = m }
}

// WithClock overrides the time source of the notifier and scheduler.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens the store and builds every component. The reminder schedule
// is not started; Run does that.
func New(cfg *model.AppConfig, log zerolog.Logger, opts ...Option) (*App, error) {
	o := options{lookup: credential.Get, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	mailer := o.mailer
	if mailer == nil {
		smtpCfg := cfg.SMTP
		if smtpCfg.Enabled() && smtpCfg.Username != "" {
			smtpCfg.Password, err = credential.Resolve(smtpCfg.Password, credential.SMTPPasswordKey, o.lookup)
			if err != nil {
				log.Warn().Err(err).Msg("could not read SMTP password from keyring")
			}
		}
		mailer = mail.NewSender(smtpCfg, log)
	}

	registry := live.NewRegistry()
	notifier := notify.New(st, st, mailer, registry, log, notify.WithClock(o.now))
	svc := tasks.NewService(st, notifier, log)
	projectSvc := projects.NewService(st, log)
	costSvc := costs.NewService(st, log)
	scheduler := reminder.New(st, st, mailer, reminder.ConfigFrom(cfg.Reminder), log, reminder.WithClock(o.now))

	a := &App{
		cfg:       cfg,
		log:       log,
		Store:     st,
		Registry:  registry,
		Notifier:  notifier,
		Tasks:     svc,
		Projects:  projectSvc,
		Costs:     costSvc,
		Scheduler: scheduler,
	}

	if cfg.Server.JWTSecret != "" {
		tokens, err := server.NewTokenIssuer(cfg.Server.JWTSecret, time.Duration(cfg.Server.TokenTTLHours)*time.Hour)
		if err != nil {
			st.Close()
			return nil, err
		}
		services := server.Services{Tasks: svc, Projects: projectSvc, Costs: costSvc}
		a.Server = server.New(st, services, registry, tokens, cfg.Server.AllowedOrigins, log)
	}

	return a, nil
}

// Run starts the reminder schedule and serves the API until ctx is
// cancelled. The schedule is stopped before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.Server == nil {
		return fmt.Errorf("server.jwt_secret must be set to serve the API")
	}

	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	err := a.Server.Run(ctx, a.cfg.Server.Addr)
	a.log.Info().Msg("taskd stopped")
	return err
}

// RemindOnce performs a single reminder sweep without starting the schedule.
func (a *App) RemindOnce(ctx context.Context) reminder.SweepResult {
	return a.Scheduler.Sweep(ctx)
}

// Close releases the store.
func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.Store.Close()
}
