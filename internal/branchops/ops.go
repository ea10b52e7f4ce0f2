package branchops

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vibetree/vibetree/internal/vcs"
)

// Ops implements the branch mutation operations of spec.md §4.7.
type Ops struct {
	vcs    VCS
	store  Store
	logger *slog.Logger
	caches []CacheInvalidator
}

// New builds an Ops. caches are invalidated (by repo-id prefix) after
// every mutating operation.
func New(v VCS, st Store, logger *slog.Logger, caches ...CacheInvalidator) *Ops {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ops{vcs: v, store: st, logger: logger, caches: caches}
}

func (o *Ops) invalidate(repoID string) {
	for _, c := range o.caches {
		c.InvalidateByPrefix(repoID)
	}
}

// CreateBranch creates branchName off baseBranch. The branch must not
// already exist.
func (o *Ops) CreateBranch(ctx context.Context, repoID, branchName, baseBranch string) error {
	if err := vcs.ValidateBranchName(branchName); err != nil {
		return err
	}
	if o.vcs.BranchExists(ctx, branchName) {
		return &PreconditionError{Message: fmt.Sprintf("branch %q already exists", branchName)}
	}
	if err := o.vcs.CreateBranch(ctx, branchName, baseBranch); err != nil {
		return err
	}
	o.invalidate(repoID)
	return nil
}

// CreateWorktreeForBranch creates a worktree for an existing branch under
// the repo's worktrees directory, idempotent if the directory already
// exists.
func (o *Ops) CreateWorktreeForBranch(ctx context.Context, repoID, branchName string) (string, error) {
	if !o.vcs.BranchExists(ctx, branchName) {
		return "", &PreconditionError{Message: fmt.Sprintf("branch %q does not exist", branchName)}
	}
	worktreeDirName := strings.ReplaceAll(branchName, "/", "-")
	worktreesDir := worktreesDirFor(o.vcs.RepoPath())
	path := filepath.Join(worktreesDir, worktreeDirName)

	out, err := o.vcs.AddWorktree(ctx, path, branchName)
	if err != nil && strings.Contains(out+err.Error(), "already exists") {
		o.logger.Info("worktree already present, treating as idempotent", "path", path)
		return path, nil
	}
	if err != nil {
		return "", err
	}
	o.invalidate(repoID)
	return path, nil
}

func worktreesDirFor(repoPath string) string {
	return filepath.Join(filepath.Dir(repoPath), filepath.Base(repoPath)+"-worktrees")
}

// Checkout switches the main working copy to branchName. The branch must
// exist, must not already be checked out, and the working tree must be
// clean.
func (o *Ops) Checkout(ctx context.Context, branchName string) error {
	if !o.vcs.BranchExists(ctx, branchName) {
		return &PreconditionError{Message: fmt.Sprintf("branch %q does not exist", branchName)}
	}
	current, err := o.vcs.CurrentBranch(ctx)
	if err == nil && current == branchName {
		return &PreconditionError{Message: fmt.Sprintf("%q is already checked out", branchName)}
	}
	if err := o.requireClean(ctx, o.vcs.RepoPath()); err != nil {
		return err
	}
	return o.vcs.Checkout(ctx, branchName)
}

// Pull pulls branchName in dir if it's checked out there, else attempts a
// fast-forward fetch, per spec.md §4.7.
func (o *Ops) Pull(ctx context.Context, dir, branchName string) (string, error) {
	current, err := o.vcs.CurrentBranch(ctx)
	if err == nil && current == branchName {
		if err := o.requireClean(ctx, dir); err != nil {
			return "", err
		}
		return o.vcs.Pull(ctx, dir, branchName)
	}

	out, err := o.vcs.FetchBranchFastForward(ctx, branchName)
	if err != nil {
		return out, fmt.Errorf("checkout and merge manually: %w", err)
	}
	return out, nil
}

// RebaseOntoParent rebases branchName (checked out in dir) onto the
// resolved parent, fetching it from origin first.
func (o *Ops) RebaseOntoParent(ctx context.Context, repoID, branchName, dir string) (string, error) {
	parent, err := o.resolveParent(ctx, repoID, branchName)
	if err != nil {
		return "", err
	}
	if err := o.requireBranchCheckedOutAndClean(ctx, branchName, dir); err != nil {
		return "", err
	}

	target := parent
	if _, err := o.vcs.Fetch(ctx, parent); err == nil {
		target = "origin/" + parent
	}
	out, err := o.vcs.RebaseOnto(ctx, dir, target)
	if err == nil {
		o.invalidate(repoID)
	}
	return out, err
}

// MergeParentIn merges the resolved parent into branchName (checked out in
// dir), symmetric to RebaseOntoParent.
func (o *Ops) MergeParentIn(ctx context.Context, repoID, branchName, dir string) (string, error) {
	parent, err := o.resolveParent(ctx, repoID, branchName)
	if err != nil {
		return "", err
	}
	if err := o.requireBranchCheckedOutAndClean(ctx, branchName, dir); err != nil {
		return "", err
	}

	target := parent
	if _, err := o.vcs.Fetch(ctx, parent); err == nil {
		target = "origin/" + parent
	}
	out, err := o.vcs.MergeNoEdit(ctx, dir, target)
	if err == nil {
		o.invalidate(repoID)
	}
	return out, err
}

// Push pushes branchName from dir, optionally with --force-with-lease.
// The branch must be checked out in dir.
func (o *Ops) Push(ctx context.Context, repoID, dir, branchName string, force bool) (string, error) {
	current, err := o.vcs.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if current != branchName {
		return "", &PreconditionError{Message: fmt.Sprintf("%q is not checked out in %q", branchName, dir)}
	}
	out, pushErr := o.vcs.Push(ctx, dir, branchName, force)
	if pushErr == nil {
		o.invalidate(repoID)
	}
	return out, pushErr
}

// CheckDeletable implements spec.md §4.7's check-deletable operation.
func (o *Ops) CheckDeletable(ctx context.Context, repoID, branchName string) DeletableResult {
	if !o.vcs.BranchExists(ctx, branchName) {
		return DeletableResult{Deletable: false, Reason: ReasonBranchNotFound}
	}
	if current, err := o.vcs.CurrentBranch(ctx); err == nil && current == branchName {
		return DeletableResult{Deletable: false, Reason: ReasonCurrentlyCheckedOut}
	}

	pushed, err := o.vcs.RemoteHasBranch(ctx, branchName)
	if err != nil {
		return DeletableResult{Deletable: false, Reason: ReasonCheckFailed}
	}
	if pushed {
		return DeletableResult{Deletable: false, Reason: ReasonPushedToRemote}
	}

	parent, err := o.resolveParent(ctx, repoID, branchName)
	if err != nil {
		return DeletableResult{Deletable: false, Reason: ReasonCheckFailed}
	}
	count, err := o.vcs.LogCount(ctx, parent, branchName)
	if err != nil {
		return DeletableResult{Deletable: false, Reason: ReasonCheckFailed}
	}
	if count > 0 {
		return DeletableResult{Deletable: false, Reason: ReasonHasCommits}
	}
	return DeletableResult{Deletable: true, Reason: ReasonNone}
}

// DeleteBranch deletes branchName, then reparents tree specs/planning
// sessions and cascade-deletes the branch's store rows, per spec.md §4.7.
// Cascade failures are logged, not returned — the branch is already gone.
func (o *Ops) DeleteBranch(ctx context.Context, repoID, branchName string, force bool) error {
	if current, err := o.vcs.CurrentBranch(ctx); err == nil && current == branchName {
		return &PreconditionError{Message: fmt.Sprintf("%q is currently checked out", branchName)}
	}

	if err := o.vcs.DeleteBranch(ctx, branchName, force); err != nil {
		return err
	}
	if err := o.vcs.DeleteRemoteBranch(ctx, branchName); err != nil {
		o.logger.Warn("remote branch delete failed, continuing", "branch", branchName, "error", err)
	}

	baseBranch, err := o.resolveParent(ctx, repoID, branchName)
	if err != nil {
		baseBranch = "main"
	}
	if err := o.store.ReparentChildren(repoID, branchName, baseBranch); err != nil {
		o.logger.Error("reparent after branch delete failed", "branch", branchName, "error", err)
	}
	if err := o.store.DeleteBranchCascade(repoID, branchName); err != nil {
		o.logger.Error("cascade delete after branch delete failed", "branch", branchName, "error", err)
	}

	o.invalidate(repoID)
	return nil
}

// CleanupOrphaned deletes store rows for any branchName not currently
// present as a local branch, per spec.md §4.7.
func (o *Ops) CleanupOrphaned(ctx context.Context, repoID string) error {
	branches, err := o.vcs.ListBranches(ctx)
	if err != nil {
		return err
	}
	keep := make([]string, len(branches))
	for i, b := range branches {
		keep[i] = b.Name
	}
	if err := o.store.CleanupOrphaned(repoID, keep); err != nil {
		return err
	}
	o.invalidate(repoID)
	return nil
}

// DeleteWorktree removes the worktree at path. The path must exist and be
// clean.
func (o *Ops) DeleteWorktree(ctx context.Context, repoID, path string) error {
	if err := o.requireClean(ctx, path); err != nil {
		return err
	}
	_, err := o.vcs.RemoveWorktree(ctx, path)
	if err == nil {
		o.invalidate(repoID)
	}
	return err
}

func (o *Ops) requireClean(ctx context.Context, dir string) error {
	dirty, err := o.vcs.HasUncommittedChanges(ctx, dir)
	if err != nil {
		return err
	}
	if dirty {
		return &PreconditionError{Message: fmt.Sprintf("working tree at %q has uncommitted changes", dir)}
	}
	return nil
}

func (o *Ops) requireBranchCheckedOutAndClean(ctx context.Context, branchName, dir string) error {
	current, err := o.vcs.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current != branchName {
		return &PreconditionError{Message: fmt.Sprintf("%q is not checked out in %q", branchName, dir)}
	}
	return o.requireClean(ctx, dir)
}

// resolveParent finds branchName's parent per spec.md §4.7's check-deletable
// rule: a tree-spec edge if present, else the tree spec's base branch, else
// "main"/"master".
func (o *Ops) resolveParent(ctx context.Context, repoID, branchName string) (string, error) {
	spec, err := o.store.GetTreeSpec(repoID)
	if err == nil && spec != nil {
		for _, e := range spec.Edges {
			if e.To == branchName {
				return e.From, nil
			}
		}
		if spec.BaseBranch != "" {
			return spec.BaseBranch, nil
		}
	}
	if o.vcs.BranchExists(ctx, "main") {
		return "main", nil
	}
	return "master", nil
}
