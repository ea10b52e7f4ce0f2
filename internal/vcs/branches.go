package vcs

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ListBranches returns local branches sorted by committer date descending,
// grounded on for-each-ref usage in
// vdemeester-lazyworktree/internal/git/service.go's GetWorktrees.
func (a *Adapter) ListBranches(ctx context.Context) ([]Branch, error) {
	out, err := a.runGit(ctx, LocalTimeout, "for-each-ref",
		"--format=%(refname:short)|%(objectname)|%(committerdate:unix)",
		"refs/heads")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		ts, _ := strconv.ParseInt(parts[2], 10, 64)
		branches = append(branches, Branch{
			Name:         parts[0],
			Commit:       parts[1],
			LastCommitAt: time.Unix(ts, 0).UTC(),
		})
	}

	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].LastCommitAt.After(branches[j].LastCommitAt)
	})
	return branches, nil
}

// BranchExists reports whether a local branch exists.
func (a *Adapter) BranchExists(ctx context.Context, name string) bool {
	_, err := a.runGit(ctx, LocalTimeout, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	return err == nil
}

// CreateBranch creates branchName off baseBranch without checking it out.
func (a *Adapter) CreateBranch(ctx context.Context, branchName, baseBranch string) error {
	if err := ValidateBranchName(branchName); err != nil {
		return err
	}
	_, err := a.runGit(ctx, LocalTimeout, "branch", branchName, baseBranch)
	return err
}

// DeleteBranch deletes a local branch. force uses -D instead of -d.
func (a *Adapter) DeleteBranch(ctx context.Context, branchName string, force bool) error {
	if err := ValidateBranchName(branchName); err != nil {
		return err
	}
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := a.runGit(ctx, LocalTimeout, "branch", flag, branchName)
	return err
}

// DeleteRemoteBranch best-effort deletes the branch on origin.
func (a *Adapter) DeleteRemoteBranch(ctx context.Context, branchName string) error {
	if err := ValidateBranchName(branchName); err != nil {
		return err
	}
	_, err := a.runGit(ctx, NetworkTimeout, "push", "origin", "--delete", branchName)
	return err
}

// Checkout switches the main working copy to branchName.
func (a *Adapter) Checkout(ctx context.Context, branchName string) error {
	if err := ValidateBranchName(branchName); err != nil {
		return err
	}
	_, err := a.runGit(ctx, LocalTimeout, "checkout", branchName)
	return err
}

// CurrentBranch returns the branch currently checked out in the main
// working copy, or "" if detached.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	out, err := a.runGit(ctx, LocalTimeout, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return out, nil
}

// HasUncommittedChanges reports whether the working copy at dir (repo root
// or a worktree path) is dirty.
func (a *Adapter) HasUncommittedChanges(ctx context.Context, dir string) (bool, error) {
	out, err := runWithRetry(ctx, a.runner, dir, LocalTimeout, "git", "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Pull runs `git pull origin <branch>` in dir (the main repo root or a
// worktree path that has branch checked out).
func (a *Adapter) Pull(ctx context.Context, dir, branch string) (string, error) {
	return runWithRetry(ctx, a.runner, dir, NetworkTimeout, "git", "pull", "origin", branch)
}

// FetchBranchFastForward attempts `git fetch origin <branch>:<branch>`,
// which only succeeds if the local ref can fast-forward.
func (a *Adapter) FetchBranchFastForward(ctx context.Context, branchName string) (string, error) {
	refspec := branchName + ":" + branchName
	return a.runGit(ctx, NetworkTimeout, "fetch", "origin", refspec)
}

// Fetch runs a plain `git fetch origin <ref>`.
func (a *Adapter) Fetch(ctx context.Context, ref string) (string, error) {
	return a.runGit(ctx, NetworkTimeout, "fetch", "origin", ref)
}

// RebaseOnto rebases the branch checked out in dir onto targetRef. On
// conflict it aborts the rebase and returns the captured output, per
// spec.md §4.7 ("On conflict, abort the rebase and report.").
func (a *Adapter) RebaseOnto(ctx context.Context, dir, targetRef string) (string, error) {
	out, err := runWithRetry(ctx, a.runner, dir, MergeTimeout, "git", "rebase", targetRef)
	if err != nil {
		_, _ = runWithRetry(ctx, a.runner, dir, LocalTimeout, "git", "rebase", "--abort")
		return out, err
	}
	return out, nil
}

// MergeNoEdit merges targetRef into the branch checked out in dir with
// --no-edit. On conflict it aborts the merge and returns the captured
// output.
func (a *Adapter) MergeNoEdit(ctx context.Context, dir, targetRef string) (string, error) {
	out, err := runWithRetry(ctx, a.runner, dir, MergeTimeout, "git", "merge", "--no-edit", targetRef)
	if err != nil {
		_, _ = runWithRetry(ctx, a.runner, dir, LocalTimeout, "git", "merge", "--abort")
		return out, err
	}
	return out, nil
}

// Push pushes a branch to origin. forceWithLease adds --force-with-lease.
func (a *Adapter) Push(ctx context.Context, dir, branch string, forceWithLease bool) (string, error) {
	args := []string{"push"}
	if forceWithLease {
		args = append(args, "--force-with-lease")
	}
	args = append(args, "origin", branch)
	return runWithRetry(ctx, a.runner, dir, NetworkTimeout, "git", args...)
}

// PushSetUpstream pushes a new branch and sets it to track origin, used by
// the materializer before creating a PR.
func (a *Adapter) PushSetUpstream(ctx context.Context, dir, branch string) (string, error) {
	return runWithRetry(ctx, a.runner, dir, NetworkTimeout, "git", "push", "-u", "origin", branch)
}

// LogCount returns the number of commits reachable from branch but not from
// parent — `git log <parent>..<branch> --oneline` is non-empty iff this is
// non-zero.
func (a *Adapter) LogCount(ctx context.Context, parent, branch string) (int, error) {
	out, err := a.runGit(ctx, LocalTimeout, "rev-list", "--count", parent+".."+branch)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(out))
	return n, nil
}

// RemoteHasBranch tests whether origin has the given branch, used by
// check-deletable's "pushed_to_remote" reason.
func (a *Adapter) RemoteHasBranch(ctx context.Context, branchName string) (bool, error) {
	out, err := a.runGit(ctx, NetworkTimeout, "ls-remote", "--heads", "origin", branchName)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}
