package gateway

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/vibetree/vibetree/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": nowRFC3339(),
	})
}

// handleRepos lists known repos on GET; on POST it upserts a repo id and
// its local path.
func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repos, err := s.deps.Store.ListRepos()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, repos)
	case http.MethodPost:
		var body struct {
			ID        string `json:"id"`
			LocalPath string `json:"localPath"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.ID == "" {
			writeFieldError(w, "id", "required")
			return
		}
		if err := s.deps.Store.UpsertRepo(body.ID, body.LocalPath); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": body.ID})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRepoByID serves GET /api/repos/:owner/:name.
func (s *Server) handleRepoByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, "/api/repos")
	if id == "" {
		writeError(w, http.StatusNotFound, "missing repo id")
		return
	}
	repo, err := s.deps.Store.GetRepo(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "repo not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

// handleProjectRules reads or writes the branch-naming rule for a repo,
// per spec.md §6.
func (s *Server) handleProjectRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		if repoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		rule, err := s.deps.Store.GetBranchNamingRule(repoID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusOK, nil)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rule)
	case http.MethodPost:
		var rule store.BranchNamingRule
		if !decodeJSON(w, r, &rule) {
			return
		}
		if rule.RepoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		if err := s.deps.Store.SetBranchNamingRule(&rule); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rule)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
