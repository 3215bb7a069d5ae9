// Package server exposes the HTTP and websocket API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/costs"
	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/projects"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/internal/tasks"
)

// Store is the persistence the handlers read from directly.
type Store interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetUnreadNotifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID int64, id string) error
}

// TaskService validates and persists tasks.
type TaskService interface {
	Create(ctx context.Context, task model.Task) (*model.Task, error)
	Get(ctx context.Context, id int64) (*model.Task, error)
	ListByProject(ctx context.Context, projectID int64) ([]model.Task, error)
	ListByResponsible(ctx context.Context, userID int64) ([]model.Task, error)
	Update(ctx context.Context, task model.Task) (*model.Task, error)
	UpdateStatus(ctx context.Context, id int64, status, comment string) (*model.Task, error)
	Delete(ctx context.Context, id int64) error
}

// ProjectService validates and persists projects.
type ProjectService interface {
	Create(ctx context.Context, project model.Project) (*model.Project, error)
	Get(ctx context.Context, id int64) (*model.Project, error)
	List(ctx context.Context, ownerID int64) ([]model.Project, error)
	Update(ctx context.Context, project model.Project) (*model.Project, error)
	Delete(ctx context.Context, id int64) error
}

// CostService records cost entries and reports balances.
type CostService interface {
	Record(ctx context.Context, cost model.Cost) (*model.Cost, error)
	ListByReference(ctx context.Context, refType model.CostRef, refID int64) ([]model.Cost, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Cost, error)
	Balance(ctx context.Context, refType model.CostRef, refID int64) (*model.CostBalance, error)
}

var (
	_ TaskService    = (*tasks.Service)(nil)
	_ ProjectService = (*projects.Service)(nil)
	_ CostService    = (*costs.Service)(nil)
)

// Services groups the domain services the handlers call.
type Services struct {
	Tasks    TaskService
	Projects ProjectService
	Costs    CostService
}

// Server wires routes to their dependencies.
type Server struct {
	store          Store
	tasks          TaskService
	projects       ProjectService
	costs          CostService
	registry       *live.Registry
	tokens         *TokenIssuer
	allowedOrigins []string
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// New builds a Server.
func New(
	st Store,
	services Services,
	registry *live.Registry,
	tokens *TokenIssuer,
	allowedOrigins []string,
	log zerolog.Logger,
) *Server {
	s := &Server{
		store:          st,
		tasks:          services.Tasks,
		projects:       services.Projects,
		costs:          services.Costs,
		registry:       registry,
		tokens:         tokens,
		allowedOrigins: allowedOrigins,
		log:            log.With().Str("component", "http").Logger(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id:[0-9]+}", s.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id:[0-9]+}", s.handleUpdateProject).Methods(http.MethodPut)
	api.HandleFunc("/projects/{id:[0-9]+}", s.handleDeleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id:[0-9]+}/status", s.handleUpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/costs", s.handleRecordCost).Methods(http.MethodPost)
	api.HandleFunc("/costs", s.handleListCosts).Methods(http.MethodGet)
	api.HandleFunc("/costs/balance", s.handleCostBalance).Methods(http.MethodGet)
	api.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.handleMarkRead).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError writes err with the status statusFor picks. Internal
// errors are logged and their text withheld.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, msg string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg(msg)
		writeError(w, code, msg)
		return
	}
	writeError(w, code, err.Error())
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
