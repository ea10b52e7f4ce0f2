package scanner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vibetree/vibetree/internal/cache"
	"github.com/vibetree/vibetree/internal/vcs"
)

type fakeVCS struct {
	repoID        string
	defaultBranch string
	branches      []vcs.Branch
	worktrees     []vcs.Worktree
	prs           []vcs.PullRequest
	aheadBehind   map[string]vcs.AheadBehind
	path          string
}

func (f *fakeVCS) RepoPath() string { return f.path }
func (f *fakeVCS) DetectRepoID(ctx context.Context) (string, error) { return f.repoID, nil }
func (f *fakeVCS) DefaultBranch(ctx context.Context) (string, error) { return f.defaultBranch, nil }
func (f *fakeVCS) BranchExists(ctx context.Context, name string) bool {
	for _, b := range f.branches {
		if b.Name == name {
			return true
		}
	}
	return false
}
func (f *fakeVCS) ListBranches(ctx context.Context) ([]vcs.Branch, error) { return f.branches, nil }
func (f *fakeVCS) ListWorktrees(ctx context.Context) ([]vcs.Worktree, error) { return f.worktrees, nil }
func (f *fakeVCS) ListPRs(ctx context.Context) ([]vcs.PullRequest, error) { return f.prs, nil }
func (f *fakeVCS) AheadBehindOf(ctx context.Context, base, branch string) (vcs.AheadBehind, error) {
	return f.aheadBehind[branch], nil
}

type recordingBroadcaster struct {
	calls int
	event string
	repo  string
}

func (r *recordingBroadcaster) Broadcast(eventType, repoID string, payload any) {
	r.calls++
	r.event = eventType
	r.repo = repoID
}

func newTestScanner(t *testing.T, f *fakeVCS, b Broadcaster) *Scanner {
	t.Helper()
	return New(func(path string) VCS {
		f.path = path
		return f
	}, nil, cache.New[[]vcs.PullRequest](), b)
}

func TestScanRejectsMissingPath(t *testing.T) {
	s := newTestScanner(t, &fakeVCS{}, nil)
	_, err := s.Scan(context.Background(), "/no/such/path/at/all")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	if _, ok := err.(*BadRequestError); !ok {
		t.Errorf("got %T, want *BadRequestError", err)
	}
}

func TestScanInfersEdgesAndBroadcasts(t *testing.T) {
	tmp := t.TempDir()
	now := time.Now()
	f := &fakeVCS{
		repoID:        "owner/repo",
		defaultBranch: "main",
		branches: []vcs.Branch{
			{Name: "main", LastCommitAt: now},
			{Name: "feature-x", LastCommitAt: now},
			{Name: "feature-x/sub", LastCommitAt: now},
		},
		aheadBehind: map[string]vcs.AheadBehind{
			"feature-x":     {Ahead: 2, Behind: 1},
			"feature-x/sub": {Ahead: 1, Behind: 0},
		},
	}
	b := &recordingBroadcaster{}
	s := newTestScanner(t, f, b)

	snap, err := s.Scan(context.Background(), tmp)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if snap.RepoID != "owner/repo" {
		t.Errorf("RepoID = %q", snap.RepoID)
	}

	edgeByChild := map[string]TreeEdge{}
	for _, e := range snap.Edges {
		edgeByChild[e.Child] = e
	}
	if edgeByChild["feature-x"].Parent != "main" || edgeByChild["feature-x"].Confidence != ConfidenceLow {
		t.Errorf("feature-x edge = %+v, want parent main at low confidence", edgeByChild["feature-x"])
	}
	if edgeByChild["feature-x/sub"].Parent != "feature-x" || edgeByChild["feature-x/sub"].Confidence != ConfidenceHigh {
		t.Errorf("feature-x/sub edge = %+v, want parent feature-x at high confidence", edgeByChild["feature-x/sub"])
	}

	foundBehindWarning := false
	for _, w := range snap.Warnings {
		if w.Code == CodeBehindParent {
			foundBehindWarning = true
		}
	}
	if !foundBehindWarning {
		t.Error("expected a BEHIND_PARENT warning for feature-x")
	}

	if b.calls != 1 || b.event != "scan.updated" || b.repo != "owner/repo" {
		t.Errorf("broadcaster not invoked as expected: %+v", b)
	}
}

func TestScanExpandsHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	got, err := expandHome("~")
	if err != nil || got != home {
		t.Errorf("expandHome(~) = (%q, %v), want (%q, nil)", got, err, home)
	}
}

func TestIsBranchPrefix(t *testing.T) {
	cases := []struct {
		prefix, child string
		want          bool
	}{
		{"feature-x", "feature-x/sub", true},
		{"feature-x", "feature-x-sub", true},
		{"feature-x", "feature-xsub", false},
		{"feature", "feature-x", true},
	}
	for _, c := range cases {
		if got := isBranchPrefix(c.prefix, c.child); got != c.want {
			t.Errorf("isBranchPrefix(%q, %q) = %v, want %v", c.prefix, c.child, got, c.want)
		}
	}
}
