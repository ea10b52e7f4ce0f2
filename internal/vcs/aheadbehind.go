package vcs

import (
	"context"
	"strconv"
	"strings"
)

// AheadBehindOf computes how far branch has diverged from base, using
// `git rev-list --left-right --count base...branch`, per spec.md §4.1.
func (a *Adapter) AheadBehindOf(ctx context.Context, base, branch string) (AheadBehind, error) {
	out, err := a.runGit(ctx, LocalTimeout, "rev-list", "--left-right", "--count", base+"..."+branch)
	if err != nil {
		return AheadBehind{}, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return AheadBehind{}, NewSubprocessError([]string{"git", "rev-list"}, out, errMalformedCount)
	}
	behind, _ := strconv.Atoi(fields[0])
	ahead, _ := strconv.Atoi(fields[1])
	return AheadBehind{Ahead: ahead, Behind: behind}, nil
}

var errMalformedCount = &malformedCountError{}

type malformedCountError struct{}

func (*malformedCountError) Error() string { return "malformed rev-list --left-right --count output" }
