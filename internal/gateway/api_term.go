package gateway

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vibetree/vibetree/internal/store"
)

// handleTermSessions creates or resumes the single terminal session for a
// worktree path, per spec.md §3's "at most one live PTY per worktree path."
func (s *Server) handleTermSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		if repoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		sessions, err := s.deps.Store.ListTerminalSessions(repoID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodPost:
		s.createOrResumeTermSession(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createOrResumeTermSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RepoID       string `json:"repoId"`
		WorktreePath string `json:"worktreePath"`
		Cols         int    `json:"cols"`
		Rows         int    `json:"rows"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.WorktreePath == "" {
		writeFieldError(w, "worktreePath", "repoId and worktreePath are required")
		return
	}
	cols, rows := body.Cols, body.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}

	existing, err := s.deps.Store.GetTerminalSessionByWorktree(body.WorktreePath)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if existing != nil && s.deps.Terminals.IsRunning(existing.ID) {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	sessionID := body.WorktreePath
	if existing != nil {
		sessionID = existing.ID
	} else {
		sessionID = uuid.NewString()
	}

	if err := s.deps.Terminals.Create(sessionID, body.WorktreePath, cols, rows); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pid, _ := s.deps.Terminals.GetPid(sessionID)

	t := &store.TerminalSession{
		ID:           sessionID,
		RepoID:       body.RepoID,
		WorktreePath: body.WorktreePath,
		Pid:          pid,
		Status:       store.TerminalRunning,
	}
	if err := s.deps.Store.SaveTerminalSession(t); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleTermSessionAction dispatches /api/term/sessions/:id[/:action]. With
// no action it reports session status; "start"/"stop"/"write"/"resize"
// drive the underlying PTY.
func (s *Server) handleTermSessionAction(w http.ResponseWriter, r *http.Request) {
	rest := pathSuffix(r, "/api/term/sessions")
	parts := strings.SplitN(strings.TrimPrefix(rest, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "missing session id")
		return
	}
	sessionID := parts[0]
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	if action == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		t, err := s.deps.Store.GetTerminalSessionByID(sessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "terminal session not found")
			return
		}
		writeJSON(w, http.StatusOK, t)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "start":
		t, err := s.deps.Store.GetTerminalSessionByID(sessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "terminal session not found")
			return
		}
		if !s.deps.Terminals.IsRunning(sessionID) {
			if err := s.deps.Terminals.Create(sessionID, t.WorktreePath, 80, 24); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		pid, _ := s.deps.Terminals.GetPid(sessionID)
		t.Pid = pid
		t.Status = store.TerminalRunning
		if err := s.deps.Store.SaveTerminalSession(t); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
	case "stop":
		s.deps.Terminals.Kill(sessionID)
		if t, err := s.deps.Store.GetTerminalSessionByID(sessionID); err == nil {
			t.Pid = 0
			t.Status = store.TerminalStopped
			_ = s.deps.Store.SaveTerminalSession(t)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	case "write":
		var body struct {
			Data string `json:"data"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if !s.deps.Terminals.Write(sessionID, []byte(body.Data)) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "written"})
	case "resize":
		var body struct {
			Cols int `json:"cols"`
			Rows int `json:"rows"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if !s.deps.Terminals.Resize(sessionID, body.Cols, body.Rows) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "resized"})
	default:
		writeError(w, http.StatusNotFound, "unknown action")
	}
}
