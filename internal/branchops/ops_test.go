package branchops

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

type fakeVCS struct {
	repoPath       string
	branches       map[string]bool
	current        string
	dirty          map[string]bool
	remoteBranches map[string]bool
	logCounts      map[string]int
	createErr      error
	removedWorktrees []string
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		branches:       make(map[string]bool),
		dirty:          make(map[string]bool),
		remoteBranches: make(map[string]bool),
		logCounts:      make(map[string]int),
	}
}

func (f *fakeVCS) RepoPath() string { return f.repoPath }
func (f *fakeVCS) BranchExists(ctx context.Context, name string) bool { return f.branches[name] }
func (f *fakeVCS) CreateBranch(ctx context.Context, branchName, baseBranch string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.branches[branchName] = true
	return nil
}
func (f *fakeVCS) DeleteBranch(ctx context.Context, branchName string, force bool) error {
	delete(f.branches, branchName)
	return nil
}
func (f *fakeVCS) DeleteRemoteBranch(ctx context.Context, branchName string) error {
	delete(f.remoteBranches, branchName)
	return nil
}
func (f *fakeVCS) Checkout(ctx context.Context, branchName string) error {
	f.current = branchName
	return nil
}
func (f *fakeVCS) CurrentBranch(ctx context.Context) (string, error) { return f.current, nil }
func (f *fakeVCS) HasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	return f.dirty[dir], nil
}
func (f *fakeVCS) Pull(ctx context.Context, dir, branch string) (string, error) { return "pulled", nil }
func (f *fakeVCS) FetchBranchFastForward(ctx context.Context, branchName string) (string, error) {
	return "fetched", nil
}
func (f *fakeVCS) Fetch(ctx context.Context, ref string) (string, error) { return "fetched", nil }
func (f *fakeVCS) RebaseOnto(ctx context.Context, dir, targetRef string) (string, error) {
	return "rebased onto " + targetRef, nil
}
func (f *fakeVCS) MergeNoEdit(ctx context.Context, dir, targetRef string) (string, error) {
	return "merged " + targetRef, nil
}
func (f *fakeVCS) Push(ctx context.Context, dir, branch string, forceWithLease bool) (string, error) {
	return "pushed", nil
}
func (f *fakeVCS) LogCount(ctx context.Context, parent, branch string) (int, error) {
	return f.logCounts[branch], nil
}
func (f *fakeVCS) RemoteHasBranch(ctx context.Context, branchName string) (bool, error) {
	return f.remoteBranches[branchName], nil
}
func (f *fakeVCS) ListBranches(ctx context.Context) ([]vcs.Branch, error) {
	var out []vcs.Branch
	for name := range f.branches {
		out = append(out, vcs.Branch{Name: name})
	}
	return out, nil
}
func (f *fakeVCS) AddWorktree(ctx context.Context, path, branchName string) (string, error) {
	return path, nil
}
func (f *fakeVCS) RemoveWorktree(ctx context.Context, path string) (string, error) {
	f.removedWorktrees = append(f.removedWorktrees, path)
	return "removed", nil
}

type fakeStore struct {
	treeSpec          *store.TreeSpec
	reparentedBranch  string
	reparentedBase    string
	cascadeDeleted    string
	cleanupKept       []string
	reparentErr       error
	cascadeErr        error
}

func (f *fakeStore) GetTreeSpec(repoID string) (*store.TreeSpec, error) {
	if f.treeSpec == nil {
		return nil, fmt.Errorf("not found")
	}
	return f.treeSpec, nil
}
func (f *fakeStore) GetRepo(id string) (*store.Repo, error) { return &store.Repo{ID: id}, nil }
func (f *fakeStore) ReparentChildren(repoID, deletedBranch, baseBranch string) error {
	f.reparentedBranch = deletedBranch
	f.reparentedBase = baseBranch
	return f.reparentErr
}
func (f *fakeStore) DeleteBranchCascade(repoID, branchName string) error {
	f.cascadeDeleted = branchName
	return f.cascadeErr
}
func (f *fakeStore) CleanupOrphaned(repoID string, keepBranches []string) error {
	f.cleanupKept = keepBranches
	return nil
}

func testOps(v *fakeVCS, s *fakeStore) *Ops {
	return New(v, s, slog.Default())
}

func TestCreateBranchRejectsExisting(t *testing.T) {
	v := newFakeVCS()
	v.branches["feature/x"] = true
	ops := testOps(v, &fakeStore{})

	err := ops.CreateBranch(context.Background(), "owner/repo", "feature/x", "main")
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestCreateBranchSucceeds(t *testing.T) {
	v := newFakeVCS()
	ops := testOps(v, &fakeStore{})

	if err := ops.CreateBranch(context.Background(), "owner/repo", "feature/x", "main"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if !v.branches["feature/x"] {
		t.Error("expected feature/x to exist after create")
	}
}

func TestCheckoutRejectsDirtyTree(t *testing.T) {
	v := newFakeVCS()
	v.repoPath = "/repo"
	v.branches["feature/x"] = true
	v.dirty["/repo"] = true
	ops := testOps(v, &fakeStore{})

	err := ops.Checkout(context.Background(), "feature/x")
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError for dirty tree, got %v", err)
	}
}

func TestCheckoutRejectsAlreadyCheckedOut(t *testing.T) {
	v := newFakeVCS()
	v.branches["feature/x"] = true
	v.current = "feature/x"
	ops := testOps(v, &fakeStore{})

	err := ops.Checkout(context.Background(), "feature/x")
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError for already-checked-out branch, got %v", err)
	}
}

func TestCheckDeletableReasons(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(v *fakeVCS)
		branch string
		want   DeletableReason
	}{
		{
			name:   "not found",
			setup:  func(v *fakeVCS) {},
			branch: "ghost",
			want:   ReasonBranchNotFound,
		},
		{
			name: "currently checked out",
			setup: func(v *fakeVCS) {
				v.branches["feature/x"] = true
				v.current = "feature/x"
			},
			branch: "feature/x",
			want:   ReasonCurrentlyCheckedOut,
		},
		{
			name: "pushed to remote",
			setup: func(v *fakeVCS) {
				v.branches["feature/x"] = true
				v.remoteBranches["feature/x"] = true
			},
			branch: "feature/x",
			want:   ReasonPushedToRemote,
		},
		{
			name: "has commits",
			setup: func(v *fakeVCS) {
				v.branches["feature/x"] = true
				v.logCounts["feature/x"] = 3
			},
			branch: "feature/x",
			want:   ReasonHasCommits,
		},
		{
			name: "deletable",
			setup: func(v *fakeVCS) {
				v.branches["feature/x"] = true
			},
			branch: "feature/x",
			want:   ReasonNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newFakeVCS()
			v.branches["main"] = true
			tc.setup(v)
			ops := testOps(v, &fakeStore{})

			result := ops.CheckDeletable(context.Background(), "owner/repo", tc.branch)
			if result.Reason != tc.want {
				t.Errorf("reason = %q, want %q", result.Reason, tc.want)
			}
			if tc.want == ReasonNone && !result.Deletable {
				t.Error("expected deletable=true")
			}
		})
	}
}

func TestDeleteBranchRejectsCurrentlyCheckedOut(t *testing.T) {
	v := newFakeVCS()
	v.branches["feature/x"] = true
	v.current = "feature/x"
	ops := testOps(v, &fakeStore{})

	err := ops.DeleteBranch(context.Background(), "owner/repo", "feature/x", false)
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestDeleteBranchReparentsAndCascades(t *testing.T) {
	v := newFakeVCS()
	v.branches["feature/x"] = true
	fs := &fakeStore{treeSpec: &store.TreeSpec{BaseBranch: "main"}}
	ops := testOps(v, fs)

	if err := ops.DeleteBranch(context.Background(), "owner/repo", "feature/x", false); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if v.branches["feature/x"] {
		t.Error("expected branch removed")
	}
	if fs.reparentedBranch != "feature/x" || fs.reparentedBase != "main" {
		t.Errorf("reparent called with (%q, %q), want (feature/x, main)", fs.reparentedBranch, fs.reparentedBase)
	}
	if fs.cascadeDeleted != "feature/x" {
		t.Errorf("cascade delete called with %q, want feature/x", fs.cascadeDeleted)
	}
}

func TestDeleteBranchSurvivesCascadeFailure(t *testing.T) {
	v := newFakeVCS()
	v.branches["feature/x"] = true
	fs := &fakeStore{
		treeSpec:   &store.TreeSpec{BaseBranch: "main"},
		cascadeErr: fmt.Errorf("db is on fire"),
	}
	ops := testOps(v, fs)

	if err := ops.DeleteBranch(context.Background(), "owner/repo", "feature/x", false); err != nil {
		t.Fatalf("DeleteBranch should not fail on cascade error, got %v", err)
	}
}

func TestCleanupOrphanedPassesLocalBranches(t *testing.T) {
	v := newFakeVCS()
	v.branches["main"] = true
	v.branches["feature/x"] = true
	fs := &fakeStore{}
	ops := testOps(v, fs)

	if err := ops.CleanupOrphaned(context.Background(), "owner/repo"); err != nil {
		t.Fatalf("CleanupOrphaned: %v", err)
	}
	if len(fs.cleanupKept) != 2 {
		t.Errorf("cleanupKept = %v, want 2 branches", fs.cleanupKept)
	}
}

func TestDeleteWorktreeRejectsDirty(t *testing.T) {
	v := newFakeVCS()
	v.dirty["/wt/feature-x"] = true
	ops := testOps(v, &fakeStore{})

	err := ops.DeleteWorktree(context.Background(), "owner/repo", "/wt/feature-x")
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestDeleteWorktreeSucceeds(t *testing.T) {
	v := newFakeVCS()
	ops := testOps(v, &fakeStore{})

	if err := ops.DeleteWorktree(context.Background(), "owner/repo", "/wt/feature-x"); err != nil {
		t.Fatalf("DeleteWorktree: %v", err)
	}
	if len(v.removedWorktrees) != 1 || v.removedWorktrees[0] != "/wt/feature-x" {
		t.Errorf("removedWorktrees = %v", v.removedWorktrees)
	}
}

func TestResolveParentPrefersTreeSpecEdge(t *testing.T) {
	v := newFakeVCS()
	v.branches["main"] = true
	fs := &fakeStore{treeSpec: &store.TreeSpec{
		BaseBranch: "main",
		Edges:      []store.Edge{{From: "feature/parent", To: "feature/child"}},
	}}
	ops := testOps(v, fs)

	parent, err := ops.resolveParent(context.Background(), "owner/repo", "feature/child")
	if err != nil {
		t.Fatalf("resolveParent: %v", err)
	}
	if parent != "feature/parent" {
		t.Errorf("parent = %q, want feature/parent", parent)
	}
}

func TestPushRequiresCheckedOutBranch(t *testing.T) {
	v := newFakeVCS()
	v.current = "main"
	ops := testOps(v, &fakeStore{})

	_, err := ops.Push(context.Background(), "owner/repo", "/repo", "feature/x", false)
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}
