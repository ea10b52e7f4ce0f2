package store

import (
	"os"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "vibetree-store-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	s, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStoreCreatesDatabase(t *testing.T) {
	s := newTestStore(t)
	if s.db == nil {
		t.Fatal("expected db handle")
	}
}

func TestPlanningSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := &PlanningSession{
		ID:         "plan-1",
		RepoID:     "owner/repo",
		Title:      "Q3 refactor",
		BaseBranch: "main",
		Status:     PlanningDraft,
		Nodes:      []TaskNode{{ID: "t1", Title: "Split handler", Status: "todo"}},
		Edges:      nil,
	}
	if err := s.SavePlanningSession(p); err != nil {
		t.Fatalf("SavePlanningSession: %v", err)
	}

	got, err := s.GetPlanningSession("plan-1")
	if err != nil {
		t.Fatalf("GetPlanningSession: %v", err)
	}
	if got.Title != "Q3 refactor" || len(got.Nodes) != 1 || got.Nodes[0].Title != "Split handler" {
		t.Errorf("unexpected planning session: %+v", got)
	}

	if err := s.ConfirmPlanningSession("plan-1"); err != nil {
		t.Fatalf("ConfirmPlanningSession: %v", err)
	}
	got, _ = s.GetPlanningSession("plan-1")
	if got.Status != PlanningConfirmed {
		t.Errorf("status = %q, want %q", got.Status, PlanningConfirmed)
	}
}

func TestTreeSpecUpsertIsIdempotentByRepo(t *testing.T) {
	s := newTestStore(t)
	t1 := &TreeSpec{RepoID: "owner/repo", BaseBranch: "main", Nodes: []TaskNode{{ID: "a"}}}
	if err := s.UpsertTreeSpec(t1); err != nil {
		t.Fatalf("UpsertTreeSpec: %v", err)
	}
	t2 := &TreeSpec{RepoID: "owner/repo", BaseBranch: "main", Nodes: []TaskNode{{ID: "a"}, {ID: "b"}}}
	if err := s.UpsertTreeSpec(t2); err != nil {
		t.Fatalf("UpsertTreeSpec second write: %v", err)
	}

	got, err := s.GetTreeSpec("owner/repo")
	if err != nil {
		t.Fatalf("GetTreeSpec: %v", err)
	}
	if len(got.Nodes) != 2 {
		t.Errorf("got %d nodes, want 2 (upsert should replace, not duplicate rows)", len(got.Nodes))
	}
}

func TestTreeSpecConfirmGenerateLifecycle(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertTreeSpec(&TreeSpec{RepoID: "r", BaseBranch: "main"}); err != nil {
		t.Fatalf("UpsertTreeSpec: %v", err)
	}
	if err := s.ConfirmTreeSpec("r"); err != nil {
		t.Fatalf("ConfirmTreeSpec: %v", err)
	}
	if err := s.MarkTreeSpecGenerated("r"); err != nil {
		t.Fatalf("MarkTreeSpecGenerated: %v", err)
	}
	got, _ := s.GetTreeSpec("r")
	if got.Status != TreeSpecGenerated {
		t.Errorf("status = %q, want %q", got.Status, TreeSpecGenerated)
	}
}

func TestTerminalSessionUniqueByWorktree(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveTerminalSession(&TerminalSession{ID: "ts1", RepoID: "r", WorktreePath: "/wt/a", Pid: 100, Status: TerminalRunning}); err != nil {
		t.Fatalf("SaveTerminalSession: %v", err)
	}
	// Re-saving the same worktree path updates in place rather than erroring.
	if err := s.SaveTerminalSession(&TerminalSession{ID: "ts1", RepoID: "r", WorktreePath: "/wt/a", Pid: 200, Status: TerminalRunning}); err != nil {
		t.Fatalf("SaveTerminalSession update: %v", err)
	}

	got, err := s.GetTerminalSessionByWorktree("/wt/a")
	if err != nil {
		t.Fatalf("GetTerminalSessionByWorktree: %v", err)
	}
	if got.Pid != 200 {
		t.Errorf("pid = %d, want 200", got.Pid)
	}
}

func TestResetAllTerminalSessionsToStopped(t *testing.T) {
	s := newTestStore(t)
	_ = s.SaveTerminalSession(&TerminalSession{ID: "ts1", RepoID: "r", WorktreePath: "/wt/a", Pid: 100, Status: TerminalRunning})
	_ = s.SaveTerminalSession(&TerminalSession{ID: "ts2", RepoID: "r", WorktreePath: "/wt/b", Pid: 200, Status: TerminalRunning})

	if err := s.ResetAllTerminalSessionsToStopped(); err != nil {
		t.Fatalf("ResetAllTerminalSessionsToStopped: %v", err)
	}

	sessions, err := s.ListTerminalSessions("r")
	if err != nil {
		t.Fatalf("ListTerminalSessions: %v", err)
	}
	for _, sess := range sessions {
		if sess.Status != TerminalStopped || sess.Pid != 0 {
			t.Errorf("session %+v not reset", sess)
		}
	}
}

func TestChatSessionAndMessages(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateChatSession(&ChatSession{ID: "c1", WorktreePath: "/wt/a", BranchName: "feature/x", RepoID: "r"}); err != nil {
		t.Fatalf("CreateChatSession: %v", err)
	}
	if _, err := s.AppendChatMessage("c1", RoleUser, "hello"); err != nil {
		t.Fatalf("AppendChatMessage: %v", err)
	}
	if _, err := s.AppendChatMessage("c1", RoleAssistant, "hi there"); err != nil {
		t.Fatalf("AppendChatMessage: %v", err)
	}

	msgs, err := s.ListChatMessages("c1")
	if err != nil {
		t.Fatalf("ListChatMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hello" || msgs[1].Content != "hi there" {
		t.Errorf("unexpected message order: %+v", msgs)
	}
}

func TestDeleteBranchCascade(t *testing.T) {
	s := newTestStore(t)
	_ = s.CreateChatSession(&ChatSession{ID: "c1", WorktreePath: "/wt/x", BranchName: "feature/x", RepoID: "r"})
	_, _ = s.AppendChatMessage("c1", RoleUser, "hi")
	_ = s.UpsertBranchLink(&BranchLink{RepoID: "r", BranchName: "feature/x", LinkType: LinkPR, URL: "https://example.com/pr/1"})

	if err := s.DeleteBranchCascade("r", "feature/x"); err != nil {
		t.Fatalf("DeleteBranchCascade: %v", err)
	}

	if _, err := s.GetChatSession("c1"); err == nil {
		t.Error("expected chat session to be deleted")
	}
	links, err := s.ListBranchLinksForBranch("r", "feature/x")
	if err != nil {
		t.Fatalf("ListBranchLinksForBranch: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected 0 branch links after cascade, got %d", len(links))
	}
}

func TestReparentChildrenRewritesEdgesToParent(t *testing.T) {
	s := newTestStore(t)
	spec := &TreeSpec{
		RepoID:     "r",
		BaseBranch: "main",
		Edges: []Edge{
			{From: "main", To: "feature/parent"},
			{From: "feature/parent", To: "feature/child"},
		},
	}
	if err := s.UpsertTreeSpec(spec); err != nil {
		t.Fatalf("UpsertTreeSpec: %v", err)
	}

	if err := s.ReparentChildren("r", "feature/parent", "main"); err != nil {
		t.Fatalf("ReparentChildren: %v", err)
	}

	got, err := s.GetTreeSpec("r")
	if err != nil {
		t.Fatalf("GetTreeSpec: %v", err)
	}
	if len(got.Edges) != 1 {
		t.Fatalf("expected 1 surviving edge, got %d: %+v", len(got.Edges), got.Edges)
	}
	if got.Edges[0].From != "main" || got.Edges[0].To != "feature/child" {
		t.Errorf("got edge %+v, want child reparented to main", got.Edges[0])
	}
}

// TestReparentChildrenUsesDeletedBranchParentNotGrandparent covers scenario
// S6: a root branch A (not the base) parents B, which parents C. Deleting B
// must reparent C onto A, not onto A's own parent (the base).
func TestReparentChildrenUsesDeletedBranchParentNotGrandparent(t *testing.T) {
	s := newTestStore(t)
	spec := &TreeSpec{
		RepoID:     "r",
		BaseBranch: "main",
		Edges: []Edge{
			{From: "main", To: "feature/a"},
			{From: "feature/a", To: "feature/b"},
			{From: "feature/b", To: "feature/c"},
		},
	}
	if err := s.UpsertTreeSpec(spec); err != nil {
		t.Fatalf("UpsertTreeSpec: %v", err)
	}

	if err := s.ReparentChildren("r", "feature/b", "main"); err != nil {
		t.Fatalf("ReparentChildren: %v", err)
	}

	got, err := s.GetTreeSpec("r")
	if err != nil {
		t.Fatalf("GetTreeSpec: %v", err)
	}
	if len(got.Edges) != 2 {
		t.Fatalf("expected 2 surviving edges, got %d: %+v", len(got.Edges), got.Edges)
	}
	for _, e := range got.Edges {
		if e.To == "feature/c" && e.From != "feature/a" {
			t.Errorf("got edge %+v, want feature/c reparented to feature/a, not %q", e, e.From)
		}
	}
}

func TestReparentChildrenFallsBackToBaseBranchWithNoGrandparent(t *testing.T) {
	s := newTestStore(t)
	spec := &TreeSpec{
		RepoID:     "r",
		BaseBranch: "main",
		Edges: []Edge{
			{From: "main", To: "feature/root"},
			{From: "feature/root", To: "feature/child"},
		},
	}
	_ = s.UpsertTreeSpec(spec)

	// feature/root's parent is "main" (the base), which has no edge
	// targeting it, so feature/root has no grandparent.
	if err := s.ReparentChildren("r", "feature/root", "main"); err != nil {
		t.Fatalf("ReparentChildren: %v", err)
	}

	got, _ := s.GetTreeSpec("r")
	if len(got.Edges) != 1 || got.Edges[0].From != "main" || got.Edges[0].To != "feature/child" {
		t.Errorf("got edges %+v, want child reparented to base branch main", got.Edges)
	}
}

func TestRepoPin(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetRepoPin("owner/repo", "develop"); err != nil {
		t.Fatalf("SetRepoPin: %v", err)
	}
	got, err := s.GetRepoPin("owner/repo")
	if err != nil {
		t.Fatalf("GetRepoPin: %v", err)
	}
	if got != "develop" {
		t.Errorf("got %q, want develop", got)
	}
}
