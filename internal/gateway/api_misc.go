package gateway

import (
	"net/http"

	"github.com/vibetree/vibetree/internal/logging"
)

// handleUnimplementedDomain answers the orthogonal `/api/requirements` and
// `/api/ai` routes named in spec.md §6 but backed by no data model the
// spec defines. Rather than invent domain structure, these report the
// surface as present-but-inert so clients can detect the capability
// without treating its absence as an error.
func (s *Server) handleUnimplementedDomain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported": false,
		"reason":    "no backing data model",
	})
}

// handleSystem reports gateway-level status for the `/api/system` route.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"logBytes": logging.CurrentLogSize(),
	})
}
