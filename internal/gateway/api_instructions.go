package gateway

import "net/http"

// handleInstructions lists or creates free-text task instructions for a
// branch, per spec.md §6's `/instructions` CRUD surface.
func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		repoID := r.URL.Query().Get("repoId")
		branchName := r.URL.Query().Get("branchName")
		if repoID == "" || branchName == "" {
			writeFieldError(w, "repoId", "repoId and branchName are required")
			return
		}
		instructions, err := s.deps.Store.ListTaskInstructionsForBranch(repoID, branchName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, instructions)
	case http.MethodPost:
		var body struct {
			RepoID     string `json:"repoId"`
			BranchName string `json:"branchName"`
			Content    string `json:"content"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.RepoID == "" || body.BranchName == "" || body.Content == "" {
			writeFieldError(w, "content", "repoId, branchName and content are required")
			return
		}
		instruction, err := s.deps.Store.CreateTaskInstruction(body.RepoID, body.BranchName, body.Content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, instruction)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleInstructionLog returns the historical instruction log for a branch.
func (s *Server) handleInstructionLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	repoID := r.URL.Query().Get("repoId")
	branchName := r.URL.Query().Get("branchName")
	if repoID == "" || branchName == "" {
		writeFieldError(w, "repoId", "repoId and branchName are required")
		return
	}
	log, err := s.deps.Store.ListInstructionLog(repoID, branchName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, log)
}
