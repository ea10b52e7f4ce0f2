package vcs

import (
	"context"
	"strings"
)

// ListWorktrees parses `git worktree list --porcelain`, grounded on
// vdemeester-lazyworktree/internal/git/service.go's GetWorktrees parser,
// and computes dirty status for each by running a status probe in the
// worktree (per spec.md §4.1).
func (a *Adapter) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	out, err := a.runGit(ctx, LocalTimeout, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var result []Worktree
	var current *Worktree
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if current != nil {
				result = append(result, *current)
			}
			current = &Worktree{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			if current != nil {
				current.Commit = strings.TrimPrefix(line, "HEAD ")
			}
		case strings.HasPrefix(line, "branch "):
			if current != nil {
				branch := strings.TrimPrefix(line, "branch ")
				current.Branch = strings.TrimPrefix(branch, "refs/heads/")
			}
		case line == "detached":
			if current != nil {
				current.Branch = ""
			}
		}
	}
	if current != nil {
		result = append(result, *current)
	}

	for i := range result {
		dirty, err := a.HasUncommittedChanges(ctx, result[i].Path)
		if err == nil {
			result[i].Dirty = dirty
		}
	}

	return result, nil
}

// AddWorktree creates a worktree at path checked out to branchName, which
// must already exist.
func (a *Adapter) AddWorktree(ctx context.Context, path, branchName string) (string, error) {
	if err := ValidateBranchName(branchName); err != nil {
		return "", err
	}
	return runWithRetry(ctx, a.runner, a.repoPath, LocalTimeout, "git", "worktree", "add", path, branchName)
}

// RemoveWorktree removes the worktree at path.
func (a *Adapter) RemoveWorktree(ctx context.Context, path string) (string, error) {
	return a.runGit(ctx, LocalTimeout, "worktree", "remove", path)
}
