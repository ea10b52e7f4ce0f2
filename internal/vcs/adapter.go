package vcs

import (
	"context"
	"regexp"
	"time"
)

// BranchNamePattern is the only shape of branch name the adapter will ever
// pass to git or gh. Validated at the request surface and re-checked here
// as a defense in depth — the adapter must never trust a caller.
var BranchNamePattern = regexp.MustCompile(`^[A-Za-z0-9/_-]+$`)

// ValidateBranchName rejects anything that doesn't match BranchNamePattern.
func ValidateBranchName(name string) error {
	if name == "" || !BranchNamePattern.MatchString(name) {
		return &InvalidBranchNameError{Name: name}
	}
	return nil
}

// Adapter wraps git and gh for a single local repository checkout. It holds
// no state beyond the runner and the repo path.
type Adapter struct {
	repoPath string
	runner   Runner
}

// NewAdapter creates an Adapter rooted at repoPath using the real git/gh
// binaries.
func NewAdapter(repoPath string) *Adapter {
	return &Adapter{repoPath: repoPath, runner: NewExecRunner()}
}

// NewAdapterWithRunner creates an Adapter using a caller-supplied Runner,
// for tests.
func NewAdapterWithRunner(repoPath string, runner Runner) *Adapter {
	return &Adapter{repoPath: repoPath, runner: runner}
}

// RepoPath returns the local path this adapter operates on.
func (a *Adapter) RepoPath() string { return a.repoPath }

// runGit runs a git subcommand in the repo directory with the given timeout,
// retrying on transient lock-contention failures.
func (a *Adapter) runGit(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	return runWithRetry(ctx, a.runner, a.repoPath, timeout, "git", args...)
}

// runGH runs a gh subcommand in the repo directory with the given timeout.
// gh failures are not retried — they are almost always authoritative
// (not-found, permission, rate limit) rather than transient lock races.
func (a *Adapter) runGH(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	return a.runner.Run(ctx, a.repoPath, timeout, "gh", args...)
}
