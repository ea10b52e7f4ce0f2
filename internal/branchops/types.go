// Package branchops implements the per-branch mutation operations from
// spec.md §4.7: create, checkout, pull, rebase/merge onto parent, push,
// check-deletable, delete (with cascade), cleanup-orphaned, and
// delete-worktree. Each operation checks its preconditions, performs the
// mutation through internal/vcs, and updates internal/store.
package branchops

import (
	"context"

	"github.com/vibetree/vibetree/internal/vcs"
)

// VCS is the subset of *vcs.Adapter branchops depends on.
type VCS interface {
	RepoPath() string
	BranchExists(ctx context.Context, name string) bool
	CreateBranch(ctx context.Context, branchName, baseBranch string) error
	DeleteBranch(ctx context.Context, branchName string, force bool) error
	DeleteRemoteBranch(ctx context.Context, branchName string) error
	Checkout(ctx context.Context, branchName string) error
	CurrentBranch(ctx context.Context) (string, error)
	HasUncommittedChanges(ctx context.Context, dir string) (bool, error)
	Pull(ctx context.Context, dir, branch string) (string, error)
	FetchBranchFastForward(ctx context.Context, branchName string) (string, error)
	Fetch(ctx context.Context, ref string) (string, error)
	RebaseOnto(ctx context.Context, dir, targetRef string) (string, error)
	MergeNoEdit(ctx context.Context, dir, targetRef string) (string, error)
	Push(ctx context.Context, dir, branch string, forceWithLease bool) (string, error)
	LogCount(ctx context.Context, parent, branch string) (int, error)
	RemoteHasBranch(ctx context.Context, branchName string) (bool, error)
	ListBranches(ctx context.Context) ([]vcs.Branch, error)
	AddWorktree(ctx context.Context, path, branchName string) (string, error)
	RemoveWorktree(ctx context.Context, path string) (string, error)
}

// DeletableReason enumerates why a branch can or cannot be deleted, per
// spec.md §4.7's check-deletable operation.
type DeletableReason string

const (
	ReasonNone                DeletableReason = ""
	ReasonBranchNotFound      DeletableReason = "branch_not_found"
	ReasonCurrentlyCheckedOut DeletableReason = "currently_checked_out"
	ReasonPushedToRemote      DeletableReason = "pushed_to_remote"
	ReasonHasCommits          DeletableReason = "has_commits"
	ReasonCheckFailed         DeletableReason = "check_failed"
)

// DeletableResult is the result of CheckDeletable.
type DeletableResult struct {
	Deletable bool
	Reason    DeletableReason
}

// PreconditionError reports a precondition failure with a human-readable
// message, per spec.md §4.7 ("Preconditions uniformly reject a dirty
// working tree with a human-readable error").
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }
