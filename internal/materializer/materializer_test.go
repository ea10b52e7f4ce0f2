package materializer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

type fakeVCS struct {
	created     map[string]string // branch -> base
	existing    map[string]bool
	worktrees   map[string]string // path -> branch
	prs         map[string]*vcs.PullRequest
	pushCalls   []string
	createErr   map[string]error
	addWtErr    map[string]error
	createPRErr error
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		created:   make(map[string]string),
		existing:  make(map[string]bool),
		worktrees: make(map[string]string),
		prs:       make(map[string]*vcs.PullRequest),
		createErr: make(map[string]error),
		addWtErr:  make(map[string]error),
	}
}

func (f *fakeVCS) BranchExists(ctx context.Context, name string) bool { return f.existing[name] }

func (f *fakeVCS) CreateBranch(ctx context.Context, branchName, baseBranch string) error {
	if err := f.createErr[branchName]; err != nil {
		return err
	}
	f.created[branchName] = baseBranch
	f.existing[branchName] = true
	return nil
}

func (f *fakeVCS) AddWorktree(ctx context.Context, path, branchName string) (string, error) {
	if err := f.addWtErr[branchName]; err != nil {
		return "", err
	}
	f.worktrees[path] = branchName
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeVCS) PushSetUpstream(ctx context.Context, dir, branch string) (string, error) {
	f.pushCalls = append(f.pushCalls, branch)
	return "", nil
}

func (f *fakeVCS) PRForBranch(ctx context.Context, branchName string) (*vcs.PullRequest, error) {
	if pr, ok := f.prs[branchName]; ok {
		return pr, nil
	}
	return nil, fmt.Errorf("no pr")
}

func (f *fakeVCS) CreatePR(ctx context.Context, branchName, baseBranch, title, body string) (string, error) {
	if f.createPRErr != nil {
		return "", f.createPRErr
	}
	url := "https://github.com/owner/repo/pull/1"
	f.prs[branchName] = &vcs.PullRequest{Number: 1, Title: title, URL: url, Branch: branchName, BaseBranch: baseBranch}
	return url, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "vibetree-materializer-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	s, err := store.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMaterializeCreatesBranchesInParentOrder(t *testing.T) {
	fv := newFakeVCS()
	st := newTestStore(t)
	m := New(fv, st)

	localPath := t.TempDir()

	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  localPath,
		BaseBranch: "main",
		Tasks: []Task{
			{ID: "t2", BranchName: "feature/child", ParentBranch: "main"},
			{ID: "t1", BranchName: "feature/parent", ParentBranch: "main"},
		},
		Edges: []store.Edge{{From: "t1", To: "t2"}},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Total != 2 || batch.Success != 2 || batch.Failed != 0 {
		t.Fatalf("batch = %+v, want 2 total, 2 success, 0 failed", batch)
	}

	if base := fv.created["feature/parent"]; base != "main" {
		t.Errorf("feature/parent created off %q, want main", base)
	}
	if base := fv.created["feature/child"]; base != "feature/parent" {
		t.Errorf("feature/child created off %q, want feature/parent (in-batch parent)", base)
	}

	worktreesDir := filepath.Join(filepath.Dir(localPath), filepath.Base(localPath)+"-worktrees")
	foundChild := false
	for path := range fv.worktrees {
		if filepath.Dir(path) == worktreesDir {
			foundChild = true
		}
	}
	if !foundChild {
		t.Errorf("expected a worktree under %s, got %v", worktreesDir, fv.worktrees)
	}

	for _, res := range batch.Results {
		if res.ChatSessionID == "" {
			t.Errorf("task %s missing chat session id", res.TaskID)
		}
		if _, err := st.GetChatSession(res.ChatSessionID); err != nil {
			t.Errorf("chat session %s not persisted: %v", res.ChatSessionID, err)
		}
	}
}

func TestMaterializeRecordsPerTaskFailureWithoutAbortingBatch(t *testing.T) {
	fv := newFakeVCS()
	fv.createErr["feature/bad"] = fmt.Errorf("simulated git failure")
	st := newTestStore(t)
	m := New(fv, st)

	localPath := t.TempDir()
	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  localPath,
		BaseBranch: "main",
		Tasks: []Task{
			{ID: "t1", BranchName: "feature/bad", ParentBranch: "main"},
			{ID: "t2", BranchName: "feature/good", ParentBranch: "main"},
		},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Total != 2 || batch.Success != 1 || batch.Failed != 1 {
		t.Fatalf("batch = %+v, want 2 total, 1 success, 1 failed", batch)
	}

	var badResult, goodResult *Result
	for i := range batch.Results {
		switch batch.Results[i].TaskID {
		case "t1":
			badResult = &batch.Results[i]
		case "t2":
			goodResult = &batch.Results[i]
		}
	}
	if badResult == nil || badResult.Success || badResult.Error == "" {
		t.Errorf("bad task result = %+v, want failure with an error message", badResult)
	}
	if goodResult == nil || !goodResult.Success {
		t.Errorf("good task result = %+v, want success", goodResult)
	}
}

func TestMaterializeRejectsInvalidBranchName(t *testing.T) {
	fv := newFakeVCS()
	st := newTestStore(t)
	m := New(fv, st)

	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  t.TempDir(),
		BaseBranch: "main",
		Tasks: []Task{
			{ID: "t1", BranchName: "..bad..", ParentBranch: "main"},
		},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Failed != 1 || batch.Results[0].Success {
		t.Fatalf("expected invalid branch name to fail, got %+v", batch.Results[0])
	}
}

func TestMaterializeWithCreatePRsPushesAndCreatesPR(t *testing.T) {
	fv := newFakeVCS()
	st := newTestStore(t)
	m := New(fv, st)

	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  t.TempDir(),
		BaseBranch: "main",
		CreatePRs:  true,
		Tasks: []Task{
			{ID: "t1", BranchName: "feature/with-pr", ParentBranch: "main", Title: "Add widget"},
		},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Failed != 0 {
		t.Fatalf("batch = %+v, want no failures", batch)
	}
	if len(fv.pushCalls) != 1 || fv.pushCalls[0] != "feature/with-pr" {
		t.Errorf("pushCalls = %v, want [feature/with-pr]", fv.pushCalls)
	}

	links, err := st.ListBranchLinksForBranch("owner/repo", "feature/with-pr")
	if err != nil {
		t.Fatalf("ListBranchLinksForBranch: %v", err)
	}
	if len(links) != 1 || links[0].LinkType != store.LinkPR {
		t.Errorf("links = %+v, want one PR link", links)
	}
	if batch.Results[0].PRStatus != PRStatusCreated {
		t.Errorf("PRStatus = %q, want %q", batch.Results[0].PRStatus, PRStatusCreated)
	}
}

func TestMaterializePRFailureDoesNotFailAnOtherwiseSuccessfulTask(t *testing.T) {
	fv := newFakeVCS()
	fv.createPRErr = fmt.Errorf("gh: rate limited")
	st := newTestStore(t)
	m := New(fv, st)

	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  t.TempDir(),
		BaseBranch: "main",
		CreatePRs:  true,
		Tasks: []Task{
			{ID: "t1", BranchName: "feature/pr-fails", ParentBranch: "main", Title: "Add widget"},
		},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Failed != 0 || batch.Success != 1 {
		t.Fatalf("batch = %+v, want the task counted as succeeded despite the PR failure", batch)
	}

	res := batch.Results[0]
	if !res.Success {
		t.Errorf("Success = false, want true: branch/worktree/chat all succeeded")
	}
	if res.PRStatus != PRStatusFailed {
		t.Errorf("PRStatus = %q, want %q", res.PRStatus, PRStatusFailed)
	}
	if res.Error == "" {
		t.Errorf("expected Error to record the PR failure reason")
	}
	if res.ChatSessionID == "" {
		t.Errorf("expected chat session to have been created before the PR step ran")
	}
}

func TestMaterializeSkipsPRCreationWhenPRAlreadyExists(t *testing.T) {
	fv := newFakeVCS()
	fv.prs["feature/has-pr"] = &vcs.PullRequest{Number: 7, Title: "Existing", URL: "https://example.com/pr/7"}
	st := newTestStore(t)
	m := New(fv, st)

	in := Input{
		RepoID:     "owner/repo",
		LocalPath:  t.TempDir(),
		BaseBranch: "main",
		CreatePRs:  true,
		Tasks: []Task{
			{ID: "t1", BranchName: "feature/has-pr", ParentBranch: "main"},
		},
	}

	batch, err := m.Materialize(context.Background(), in)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if batch.Failed != 0 {
		t.Fatalf("batch = %+v, want no failures", batch)
	}
	if len(fv.pushCalls) != 0 {
		t.Errorf("expected no push when PR already exists, got %v", fv.pushCalls)
	}
	if batch.Results[0].PRStatus != PRStatusCreated {
		t.Errorf("PRStatus = %q, want %q (linking an existing PR still counts as created)", batch.Results[0].PRStatus, PRStatusCreated)
	}
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	_, err := topologicalSort([]string{"a", "b"}, map[string]string{"a": "b", "b": "a"})
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
}
