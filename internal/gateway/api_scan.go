package gateway

import (
	"net/http"

	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/scanner"
)

// handleScan runs a full scan of localPath and broadcasts the result, per
// spec.md §4.4/§4.8.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		LocalPath string `json:"localPath"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.LocalPath == "" {
		writeFieldError(w, "localPath", "required")
		return
	}

	snapshot, err := s.deps.Scanner.Scan(r.Context(), body.LocalPath)
	if err != nil {
		if be, ok := err.(*scanner.BadRequestError); ok {
			writeError(w, http.StatusBadRequest, be.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.Broadcast(broadcast.Message{
		Type:    broadcast.EventScanUpdated,
		RepoID:  snapshot.RepoID,
		Payload: snapshot,
	})
	writeJSON(w, http.StatusOK, snapshot)
}

// handleRestartPrompt synthesizes restart markdown for a worktree by
// re-scanning its repo and returning the restart hint that scan computed.
func (s *Server) handleRestartPrompt(w http.ResponseWriter, r *http.Request) {
	localPath := r.URL.Query().Get("localPath")
	if localPath == "" {
		writeFieldError(w, "localPath", "required")
		return
	}
	snapshot, err := s.deps.Scanner.Scan(r.Context(), localPath)
	if err != nil {
		if be, ok := err.(*scanner.BadRequestError); ok {
			writeError(w, http.StatusBadRequest, be.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"restart": snapshot.Restart})
}
