package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/taskd/internal/model"
)

type projectRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	OwnerID     int64   `json:"owner_id"`
}

type taskRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	DueAt         *time.Time `json:"due_at"`
	ProjectID     int64      `json:"project_id"`
	ResponsibleID int64      `json:"responsible_id"`
	Status        string     `json:"status"`
}

func (req taskRequest) task(id int64) model.Task {
	return model.Task{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		DueAt:         req.DueAt,
		ProjectID:     req.ProjectID,
		ResponsibleID: req.ResponsibleID,
		Status:        req.Status,
	}
}

type costRequest struct {
	RefType     model.CostRef  `json:"ref_type"`
	RefID       int64          `json:"ref_id"`
	Description string         `json:"description"`
	Amount      float64        `json:"amount"`
	Kind        model.CostKind `json:"kind"`
}

// pathID reads the numeric {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// queryID reads a numeric query parameter. ok is false when the value is
// present but not a number.
func queryID(r *http.Request, name string) (id int64, present, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, true, err == nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// === Projects ===

// handleCreateProject creates a project. The caller owns it unless
// owner_id names someone else.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OwnerID == 0 {
		req.OwnerID, _ = UserIDFrom(r.Context())
	}

	project, err := s.projects.Create(r.Context(), model.Project{
		Name:        req.Name,
		Description: req.Description,
		Budget:      req.Budget,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		s.writeServiceError(w, err, "could not create project")
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ownerID, _, ok := queryID(r, "owner_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid owner_id")
		return
	}

	list, err := s.projects.List(r.Context(), ownerID)
	if err != nil {
		s.writeServiceError(w, err, "could not list projects")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "could not load project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}

	project, err := s.projects.Update(r.Context(), model.Project{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		s.writeServiceError(w, err, "could not update project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := s.projects.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err, "could not delete project")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// === Tasks ===

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.tasks.Create(r.Context(), req.task(0))
	if err != nil {
		s.writeServiceError(w, err, "could not create task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// handleListTasks filters by project_id or responsible_id. Without
// either it lists the caller's own tasks.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	projectID, byProject, ok := queryID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid project_id")
		return
	}
	responsibleID, byResponsible, ok := queryID(r, "responsible_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid responsible_id")
		return
	}

	var (
		list []model.Task
		err  error
	)
	switch {
	case byProject:
		list, err = s.tasks.ListByProject(r.Context(), projectID)
	case byResponsible:
		list, err = s.tasks.ListByResponsible(r.Context(), responsibleID)
	default:
		userID, _ := UserIDFrom(r.Context())
		list, err = s.tasks.ListByResponsible(r.Context(), userID)
	}
	if err != nil {
		s.writeServiceError(w, err, "could not list tasks")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "could not load task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.tasks.Update(r.Context(), req.task(id))
	if err != nil {
		s.writeServiceError(w, err, "could not update task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := s.tasks.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, err, "could not delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// === Costs ===

// handleRecordCost books a cost entry recorded by the caller.
func (s *Server) handleRecordCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if !decode(w, r, &req) {
		return
	}
	userID, _ := UserIDFrom(r.Context())

	cost, err := s.costs.Record(r.Context(), model.Cost{
		RefType:     req.RefType,
		RefID:       req.RefID,
		Description: req.Description,
		Amount:      req.Amount,
		Kind:        req.Kind,
		RecordedBy:  userID,
	})
	if err != nil {
		s.writeServiceError(w, err, "could not record cost")
		return
	}

	writeJSON(w, http.StatusCreated, cost)
}

// handleListCosts lists the entries of ref_type/ref_id, or those recorded
// by user_id. Without either it lists the caller's own entries.
func (s *Server) handleListCosts(w http.ResponseWriter, r *http.Request) {
	refID, byRef, ok := queryID(r, "ref_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ref_id")
		return
	}
	userID, byUser, ok := queryID(r, "user_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if !byUser {
		userID, _ = UserIDFrom(r.Context())
	}

	var (
		list []model.Cost
		err  error
	)
	if byRef {
		refType := model.CostRef(strings.ToUpper(r.URL.Query().Get("ref_type")))
		list, err = s.costs.ListByReference(r.Context(), refType, refID)
	} else {
		list, err = s.costs.ListByUser(r.Context(), userID)
	}
	if err != nil {
		s.writeServiceError(w, err, "could not list costs")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCostBalance(w http.ResponseWriter, r *http.Request) {
	refID, _, ok := queryID(r, "ref_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ref_id")
		return
	}
	refType := model.CostRef(strings.ToUpper(r.URL.Query().Get("ref_type")))

	balance, err := s.costs.Balance(r.Context(), refType, refID)
	if err != nil {
		s.writeServiceError(w, err, "could not compute balance")
		return
	}

	writeJSON(w, http.StatusOK, balance)
}
