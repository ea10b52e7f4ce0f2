package vcs

import (
	"context"

	"github.com/pkg/browser"
)

// OpenPR opens a branch's pull request URL in the user's default browser,
// for the CLI's `vibetree pr open` command. Returns an error if the
// branch has no open PR.
func (a *Adapter) OpenPR(ctx context.Context, branchName string) error {
	pr, err := a.PRForBranch(ctx, branchName)
	if err != nil {
		return err
	}
	if pr == nil {
		return &NoPRError{Branch: branchName}
	}
	return browser.OpenURL(pr.URL)
}

// NoPRError reports that a branch has no associated pull request.
type NoPRError struct {
	Branch string
}

func (e *NoPRError) Error() string {
	return "no pull request found for branch " + e.Branch
}
