package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type statusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"live_users": s.registry.Len(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("login failed")
		}
		writeError(w, code, http.StatusText(code))
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("issuing token failed")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: *user})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.tasks.UpdateStatus(r.Context(), id, req.Status, req.Comment)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.log.Error().Err(err).Int64("task_id", id).Msg("status update failed")
		}
		writeError(w, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	list, err := s.store.GetUnreadNotifications(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("listing notifications failed")
		writeError(w, http.StatusInternalServerError, "could not list notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())
	id := mux.Vars(r)["id"]

	if err := s.store.MarkNotificationRead(r.Context(), userID, id); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("notification_id", id).Msg("mark read failed")
		}
		writeError(w, code, http.StatusText(code))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket upgrades the request and keeps the session registered
// for the authenticated user until the peer disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	live.NewClient(conn, userID, s.registry, s.log).Serve()
}
