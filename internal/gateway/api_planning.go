package gateway

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/store"
)

// handlePlanningSessions lists planning sessions for a repo or upserts one,
// per spec.md §6's `/planning-sessions` CRUD surface (aliased at
// `/plan`, which the distilled spec names separately but describes the
// same resource).
func (s *Server) handlePlanningSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		if repoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		sessions, err := s.deps.Store.ListPlanningSessions(repoID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodPost:
		var p store.PlanningSession
		if !decodeJSON(w, r, &p) {
			return
		}
		if p.ID == "" || p.RepoID == "" {
			writeFieldError(w, "id", "id and repoId are required")
			return
		}
		if err := s.deps.Store.SavePlanningSession(&p); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.hub.Broadcast(broadcast.Message{
			Type:    broadcast.EventPlanUpdated,
			RepoID:  p.RepoID,
			Payload: p,
		})
		writeJSON(w, http.StatusOK, p)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePlanningSessionByID serves GET /api/planning-sessions/:id.
func (s *Server) handlePlanningSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r, "/api/planning-sessions")
	if id == "" {
		writeError(w, http.StatusNotFound, "missing planning session id")
		return
	}
	p, err := s.deps.Store.GetPlanningSession(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "planning session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePlanningSessionConfirm transitions a planning session draft ->
// confirmed.
func (s *Server) handlePlanningSessionConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ID == "" {
		writeFieldError(w, "id", "required")
		return
	}
	if err := s.deps.Store.ConfirmPlanningSession(body.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.Broadcast(broadcast.Message{Type: broadcast.EventPlanUpdated})
	writeJSON(w, http.StatusOK, map[string]string{"status": store.PlanningConfirmed})
}

// handlePlanningSessionDiscard transitions a planning session to discarded.
func (s *Server) handlePlanningSessionDiscard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ID == "" {
		writeFieldError(w, "id", "required")
		return
	}
	if err := s.deps.Store.DiscardPlanningSession(body.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.Broadcast(broadcast.Message{Type: broadcast.EventPlanUpdated})
	writeJSON(w, http.StatusOK, map[string]string{"status": store.PlanningDiscarded})
}
