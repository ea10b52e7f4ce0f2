package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/vibetree/vibetree/internal/pty"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	deps := Deps{
		Store:     st,
		NewVCS:    func(localPath string) *vcs.Adapter { return vcs.NewAdapter(localPath) },
		Terminals: pty.NewManager(),
	}
	return New(Config{Host: "127.0.0.1", Port: 0}, deps)
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func testMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return mux
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, testMux(s), http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestHandleReposUpsertAndList(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/repos", map[string]string{
		"id": "repo-1", "localPath": "/tmp/repo-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/repos", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var repos []*store.Repo
	if err := json.Unmarshal(w.Body.Bytes(), &repos); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(repos) != 1 || repos[0].ID != "repo-1" {
		t.Fatalf("repos = %+v", repos)
	}
}

func TestHandleRepoByIDNotFound(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, testMux(s), http.MethodGet, "/api/repos/does-not-exist", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleTreeSpecConfirmRejectsEmptyGraph(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	if err := s.deps.Store.UpsertTreeSpec(&store.TreeSpec{RepoID: "repo-1", BaseBranch: "main"}); err != nil {
		t.Fatalf("seed tree spec: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, "/api/tree-spec/confirm", map[string]string{"repoId": "repo-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleTreeSpecConfirmSucceedsWithRootNode(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	spec := &store.TreeSpec{
		RepoID:     "repo-1",
		BaseBranch: "main",
		Nodes:      []store.TaskNode{{ID: "n1", BranchName: "feature/a"}},
	}
	if err := s.deps.Store.UpsertTreeSpec(spec); err != nil {
		t.Fatalf("seed tree spec: %v", err)
	}

	w := doJSON(t, mux, http.MethodPost, "/api/tree-spec/confirm", map[string]string{"repoId": "repo-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got, err := s.deps.Store.GetTreeSpec("repo-1")
	if err != nil {
		t.Fatalf("GetTreeSpec: %v", err)
	}
	if got.Status != store.TreeSpecConfirmed {
		t.Errorf("status = %q, want confirmed", got.Status)
	}
}

func TestHandleBranchCreateRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, testMux(s), http.MethodPost, "/api/branch/create", map[string]string{"repoId": "repo-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleBranchCreateAgainstRealRepo(t *testing.T) {
	s := newTestServer(t)
	repoDir := initGitRepo(t)

	w := doJSON(t, testMux(s), http.MethodPost, "/api/branch/create", map[string]string{
		"repoId": "repo-1", "localPath": repoDir, "branchName": "feature/x", "baseBranch": "main",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleExternalLinksCreateAndList(t *testing.T) {
	s := newTestServer(t)
	mux := testMux(s)

	w := doJSON(t, mux, http.MethodPost, "/api/external-links", map[string]string{
		"planningSessionId": "ps-1", "url": "https://example.com/doc", "linkType": store.ExternalURL,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("post status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/external-links?planningSessionId=ps-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var links []*store.ExternalLink
	if err := json.Unmarshal(w.Body.Bytes(), &links); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v", links)
	}
}

func TestIsLocalhost(t *testing.T) {
	cases := map[string]bool{
		"http://localhost:3000": true,
		"http://127.0.0.1:8080": true,
		"https://evil.example":  false,
		"":                      false,
	}
	for origin, want := range cases {
		if got := isLocalhost(origin); got != want {
			t.Errorf("isLocalhost(%q) = %v, want %v", origin, got, want)
		}
	}
}

// initGitRepo creates a minimal git repo with one commit on main, for tests
// that exercise real branch operations through vcs.Adapter.
func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
	return dir
}
