package gateway

import (
	"net/http"

	"github.com/vibetree/vibetree/internal/branchops"
	"github.com/vibetree/vibetree/internal/broadcast"
	"github.com/vibetree/vibetree/internal/materializer"
)

// opsFor builds a per-request branchops.Ops rooted at localPath, per
// spec.md §4.7 — mutating operations target one working copy at a time.
func (s *Server) opsFor(localPath string) *branchops.Ops {
	return branchops.New(s.deps.NewVCS(localPath), s.deps.Store, s.deps.logger())
}

func (s *Server) branchChanged(repoID string) {
	s.hub.Broadcast(broadcast.Message{Type: broadcast.EventBranchesChanged, RepoID: repoID})
}

func (s *Server) handleBranchCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		BranchName string `json:"branchName"`
		BaseBranch string `json:"baseBranch"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.LocalPath == "" || body.BranchName == "" {
		writeFieldError(w, "branchName", "repoId, localPath, and branchName are required")
		return
	}
	if err := s.opsFor(body.LocalPath).CreateBranch(r.Context(), body.RepoID, body.BranchName, body.BaseBranch); err != nil {
		writePreconditionAware(w, err)
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"branchName": body.BranchName})
}

func (s *Server) handleBranchCreateWorktree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		BranchName string `json:"branchName"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.LocalPath == "" || body.BranchName == "" {
		writeFieldError(w, "branchName", "repoId, localPath, and branchName are required")
		return
	}
	path, err := s.opsFor(body.LocalPath).CreateWorktreeForBranch(r.Context(), body.RepoID, body.BranchName)
	if err != nil {
		writePreconditionAware(w, err)
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"worktreePath": path})
}

// handleBranchCreateTree materializes a full task graph in one batch, per
// spec.md §4.6.
func (s *Server) handleBranchCreateTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in materializer.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.RepoID == "" || in.LocalPath == "" {
		writeFieldError(w, "localPath", "repoId and localPath are required")
		return
	}
	m := materializer.New(s.deps.NewVCS(in.LocalPath), s.deps.Store)
	result, err := m.Materialize(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.branchChanged(in.RepoID)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBranchCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		BranchName string `json:"branchName"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.BranchName == "" {
		writeFieldError(w, "branchName", "required")
		return
	}
	if err := s.opsFor(body.LocalPath).Checkout(r.Context(), body.BranchName); err != nil {
		writePreconditionAware(w, err)
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"branchName": body.BranchName})
}

func (s *Server) handleBranchPull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		Dir        string `json:"dir"`
		BranchName string `json:"branchName"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.BranchName == "" || body.Dir == "" {
		writeFieldError(w, "dir", "dir and branchName are required")
		return
	}
	out, err := s.opsFor(body.LocalPath).Pull(r.Context(), body.Dir, body.BranchName)
	if err != nil {
		writePreconditionAware(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (s *Server) handleBranchRebase(w http.ResponseWriter, r *http.Request) {
	s.handleRebaseOrMerge(w, r, func(ops *branchops.Ops, repoID, branchName, dir string) (string, error) {
		return ops.RebaseOntoParent(r.Context(), repoID, branchName, dir)
	})
}

func (s *Server) handleBranchMergeParent(w http.ResponseWriter, r *http.Request) {
	s.handleRebaseOrMerge(w, r, func(ops *branchops.Ops, repoID, branchName, dir string) (string, error) {
		return ops.MergeParentIn(r.Context(), repoID, branchName, dir)
	})
}

func (s *Server) handleRebaseOrMerge(w http.ResponseWriter, r *http.Request, op func(ops *branchops.Ops, repoID, branchName, dir string) (string, error)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		Dir        string `json:"dir"`
		BranchName string `json:"branchName"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.BranchName == "" || body.Dir == "" {
		writeFieldError(w, "dir", "repoId, dir, and branchName are required")
		return
	}
	out, err := op(s.opsFor(body.LocalPath), body.RepoID, body.BranchName, body.Dir)
	if err != nil {
		writePreconditionAware(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (s *Server) handleBranchPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID         string `json:"repoId"`
		LocalPath      string `json:"localPath"`
		Dir            string `json:"dir"`
		BranchName     string `json:"branchName"`
		ForceWithLease bool   `json:"forceWithLease"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.BranchName == "" || body.Dir == "" {
		writeFieldError(w, "dir", "dir and branchName are required")
		return
	}
	out, err := s.opsFor(body.LocalPath).Push(r.Context(), body.RepoID, body.Dir, body.BranchName, body.ForceWithLease)
	if err != nil {
		writePreconditionAware(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": out})
}

func (s *Server) handleBranchCheckDeletable(w http.ResponseWriter, r *http.Request) {
	repoID := r.URL.Query().Get("repoId")
	localPath := r.URL.Query().Get("localPath")
	branchName := r.URL.Query().Get("branchName")
	if repoID == "" || branchName == "" {
		writeFieldError(w, "branchName", "repoId and branchName are required")
		return
	}
	result := s.opsFor(localPath).CheckDeletable(r.Context(), repoID, branchName)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBranchDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID     string `json:"repoId"`
		LocalPath  string `json:"localPath"`
		BranchName string `json:"branchName"`
		Force      bool   `json:"force"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.BranchName == "" {
		writeFieldError(w, "branchName", "repoId and branchName are required")
		return
	}
	if err := s.opsFor(body.LocalPath).DeleteBranch(r.Context(), body.RepoID, body.BranchName, body.Force); err != nil {
		writePreconditionAware(w, err)
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"branchName": body.BranchName})
}

func (s *Server) handleBranchDeleteWorktree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID    string `json:"repoId"`
		LocalPath string `json:"localPath"`
		Path      string `json:"path"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" || body.Path == "" {
		writeFieldError(w, "path", "repoId and path are required")
		return
	}
	if err := s.opsFor(body.LocalPath).DeleteWorktree(r.Context(), body.RepoID, body.Path); err != nil {
		writePreconditionAware(w, err)
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"path": body.Path})
}

func (s *Server) handleBranchCleanupOrphaned(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body struct {
		RepoID    string `json:"repoId"`
		LocalPath string `json:"localPath"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.RepoID == "" {
		writeFieldError(w, "repoId", "required")
		return
	}
	if err := s.opsFor(body.LocalPath).CleanupOrphaned(r.Context(), body.RepoID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.branchChanged(body.RepoID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

// writePreconditionAware maps a *branchops.PreconditionError to 400, else
// 500.
func writePreconditionAware(w http.ResponseWriter, err error) {
	if pe, ok := err.(*branchops.PreconditionError); ok {
		writeError(w, http.StatusBadRequest, pe.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
