package gateway

import (
	"net/http"

	"github.com/vibetree/vibetree/internal/store"
)

// handleChatSessions lists chat sessions for a branch or creates one, per
// spec.md §6's `/chat` CRUD surface.
func (s *Server) handleChatSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		branchName := r.URL.Query().Get("branchName")
		if repoID == "" || branchName == "" {
			writeFieldError(w, "repoId", "repoId and branchName are required")
			return
		}
		sessions, err := s.deps.Store.ListChatSessionsForBranch(repoID, branchName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodPost:
		var c store.ChatSession
		if !decodeJSON(w, r, &c) {
			return
		}
		if c.ID == "" || c.RepoID == "" || c.BranchName == "" {
			writeFieldError(w, "id", "id, repoId and branchName are required")
			return
		}
		if err := s.deps.Store.CreateChatSession(&c); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, c)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleChatSessionMessages serves /api/chat-sessions/:id/messages (list
// and append) and /api/chat-sessions/:id/archive.
func (s *Server) handleChatSessionMessages(w http.ResponseWriter, r *http.Request) {
	rest := pathSuffix(r, "/api/chat-sessions")
	id, sub := splitFirstSegment(rest)
	if id == "" {
		writeError(w, http.StatusNotFound, "missing chat session id")
		return
	}

	switch {
	case sub == "messages" && r.Method == http.MethodGet:
		messages, err := s.deps.Store.ListChatMessages(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, messages)

	case sub == "messages" && r.Method == http.MethodPost:
		var body struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Role == "" || body.Content == "" {
			writeFieldError(w, "content", "role and content are required")
			return
		}
		msgID, err := s.deps.Store.AppendChatMessage(id, body.Role, body.Content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"id": msgID})

	case sub == "archive" && r.Method == http.MethodPost:
		if err := s.deps.Store.ArchiveChatSession(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})

	case sub == "" && r.Method == http.MethodGet:
		c, err := s.deps.Store.GetChatSession(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "chat session not found")
			return
		}
		writeJSON(w, http.StatusOK, c)

	default:
		writeError(w, http.StatusNotFound, "unknown chat session action")
	}
}

// splitFirstSegment splits "a/b/c" into ("a", "b/c") and "a" into ("a", "").
func splitFirstSegment(path string) (string, string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}
