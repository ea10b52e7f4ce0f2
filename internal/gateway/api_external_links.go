package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/store"
)

// handleExternalLinks lists or attaches external references for a
// planning session, per spec.md §3.
func (s *Server) handleExternalLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessionID := r.URL.Query().Get("planningSessionId")
		if sessionID == "" {
			writeFieldError(w, "planningSessionId", "required")
			return
		}
		links, err := s.deps.Store.ListExternalLinksForSession(sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, links)
	case http.MethodPost:
		var link store.ExternalLink
		if !decodeJSON(w, r, &link) {
			return
		}
		if link.PlanningSessionID == "" || link.URL == "" {
			writeFieldError(w, "url", "planningSessionId and url are required")
			return
		}
		id, err := s.deps.Store.CreateExternalLink(&link)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		link.ID = id
		s.hub.Broadcast(broadcast.Message{
			Type:      broadcast.EventExternalLinkCreate,
			SessionID: link.PlanningSessionID,
			Payload:   link,
		})
		writeJSON(w, http.StatusCreated, link)
	case http.MethodPatch:
		var body struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.ID == 0 {
			writeFieldError(w, "id", "required")
			return
		}
		if err := s.deps.Store.UpdateExternalLinkTitle(body.ID, body.Title); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExternalLinksContext concatenates every cached external link's
// content into a single markdown bundle for a planning session, for
// injection into an authored task's context.
func (s *Server) handleExternalLinksContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sessionID := r.URL.Query().Get("planningSessionId")
	if sessionID == "" {
		writeFieldError(w, "planningSessionId", "required")
		return
	}
	links, err := s.deps.Store.ListExternalLinksForSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var b strings.Builder
	for _, l := range links {
		if l.ContentCache == "" {
			continue
		}
		title := l.Title
		if title == "" {
			title = l.URL
		}
		b.WriteString("## " + title + "\n\n" + l.ContentCache + "\n\n")
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": b.String()})
}

// handleExternalLinkByID serves refresh (POST .../refresh) and delete
// (DELETE) for a single external link.
func (s *Server) handleExternalLinkByID(w http.ResponseWriter, r *http.Request) {
	rest := pathSuffix(r, "/api/external-links")
	idStr := rest
	refresh := false
	if suf := "/refresh"; len(rest) > len(suf) && rest[len(rest)-len(suf):] == suf {
		idStr = rest[:len(rest)-len(suf)]
		refresh = true
	}
	idStr = trimSlashes(idStr)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid external link id")
		return
	}

	switch {
	case refresh && r.Method == http.MethodPost:
		var body struct {
			ContentCache string `json:"contentCache"`
			SessionID    string `json:"planningSessionId"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if err := s.deps.Store.RefreshExternalLinkCache(id, body.ContentCache); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.hub.Broadcast(broadcast.Message{
			Type:      broadcast.EventExternalLinkUpdate,
			SessionID: body.SessionID,
			Payload:   map[string]any{"id": id},
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
	case r.Method == http.MethodDelete:
		if err := s.deps.Store.DeleteExternalLink(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.hub.Broadcast(broadcast.Message{
			Type:    broadcast.EventExternalLinkDelete,
			Payload: map[string]any{"id": id},
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
