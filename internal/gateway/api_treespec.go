package gateway

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/store"
)

// handleTreeSpec reads or atomically upserts a repo's tree spec, per
// spec.md §4.3.
func (s *Server) handleTreeSpec(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		if repoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		spec, err := s.deps.Store.GetTreeSpec(repoID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, http.StatusOK, nil)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, spec)
	case http.MethodPost:
		var spec store.TreeSpec
		if !decodeJSON(w, r, &spec) {
			return
		}
		if spec.RepoID == "" {
			writeFieldError(w, "repoId", "required")
			return
		}
		if err := s.deps.Store.UpsertTreeSpec(&spec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.hub.Broadcast(broadcast.Message{
			Type:    broadcast.EventPlanUpdated,
			RepoID:  spec.RepoID,
			Payload: spec,
		})
		writeJSON(w, http.StatusOK, spec)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTreeSpecConfirm transitions a tree spec draft -> confirmed, per
// spec.md §6's "baseBranch set, >=1 node, >=1 root" precondition.
func (s *Server) handleTreeSpecConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID string `json:"repoId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" {
		writeFieldError(w, "repoId", "required")
		return
	}

	spec, err := s.deps.Store.GetTreeSpec(body.RepoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tree spec not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reason := treeSpecConfirmable(spec); reason != "" {
		writeError(w, http.StatusBadRequest, reason)
		return
	}

	if err := s.deps.Store.ConfirmTreeSpec(body.RepoID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.Broadcast(broadcast.Message{Type: broadcast.EventPlanUpdated, RepoID: body.RepoID})
	writeJSON(w, http.StatusOK, map[string]string{"status": store.TreeSpecConfirmed})
}

// handleTreeSpecUnconfirm transitions a tree spec confirmed -> draft.
func (s *Server) handleTreeSpecUnconfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID string `json:"repoId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" {
		writeFieldError(w, "repoId", "required")
		return
	}
	if err := s.deps.Store.UnconfirmTreeSpec(body.RepoID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.Broadcast(broadcast.Message{Type: broadcast.EventPlanUpdated, RepoID: body.RepoID})
	writeJSON(w, http.StatusOK, map[string]string{"status": store.TreeSpecDraft})
}

// treeSpecConfirmable returns a human-readable rejection reason, or "" if
// the spec satisfies spec.md §6's confirm preconditions.
func treeSpecConfirmable(spec *store.TreeSpec) string {
	if spec.BaseBranch == "" {
		return "baseBranch must be set before confirming"
	}
	if len(spec.Nodes) == 0 {
		return "tree spec must have at least one node"
	}
	hasChild := make(map[string]bool, len(spec.Edges))
	for _, e := range spec.Edges {
		hasChild[e.To] = true
	}
	for _, n := range spec.Nodes {
		if !hasChild[n.ID] {
			return ""
		}
	}
	return "tree spec must have at least one root node"
}
