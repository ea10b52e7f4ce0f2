package gateway

import (
	"net/http"

	"github.com/vibetree/vibetree/internal/store"
)

// handleBranchLinks lists or upserts issue/PR links attached to a branch,
// per spec.md §6's `/branch-links` CRUD surface.
func (s *Server) handleBranchLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		branchName := r.URL.Query().Get("branchName")
		if repoID == "" || branchName == "" {
			writeFieldError(w, "repoId", "repoId and branchName are required")
			return
		}
		links, err := s.deps.Store.ListBranchLinksForBranch(repoID, branchName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, links)
	case http.MethodPost:
		var l store.BranchLink
		if !decodeJSON(w, r, &l) {
			return
		}
		if l.RepoID == "" || l.BranchName == "" || l.URL == "" {
			writeFieldError(w, "url", "repoId, branchName and url are required")
			return
		}
		if err := s.deps.Store.UpsertBranchLink(&l); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, l)
	case http.MethodDelete:
		repoID := r.URL.Query().Get("repoId")
		branchName := r.URL.Query().Get("branchName")
		if repoID == "" || branchName == "" {
			writeFieldError(w, "repoId", "repoId and branchName are required")
			return
		}
		if err := s.deps.Store.DeleteBranchLinksForBranch(repoID, branchName); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRepoPins serves the pinned base-branch override for a repo, per
// spec.md §6's `/repo-pins` surface.
func (s *Server) handleRepoPins(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		if repoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		pin, err := s.deps.Store.GetRepoPin(repoID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"baseBranchOverride": pin})
	case http.MethodPost:
		var body struct {
			RepoID             string `json:"repoId"`
			BaseBranchOverride string `json:"baseBranchOverride"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.RepoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		if err := s.deps.Store.SetRepoPin(body.RepoID, body.BaseBranchOverride); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"baseBranchOverride": body.BaseBranchOverride})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
