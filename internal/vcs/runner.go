package vcs

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Default timeouts per spec.md §4.1/§5: 30s for local git operations, and
// 60s for both network operations and rebase/merge, so a hung process
// doesn't wedge a request forever.
const (
	LocalTimeout   = 30 * time.Second
	NetworkTimeout = 60 * time.Second
	MergeTimeout   = 60 * time.Second
)

// Runner executes a subprocess and captures combined output. It is the one
// primitive every adapter operation is built from (§9 Design Notes:
// "Subprocess orchestration") and exists as an interface purely so tests can
// substitute a fake instead of forking real git/gh processes.
type Runner interface {
	Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (string, error)
}

// execRunner is the production Runner backed by os/exec.
type execRunner struct{}

// NewExecRunner returns the default Runner, which shells out to the real
// binary named by each call. Arguments are always passed positionally —
// the adapter never interpolates user input into a shell string.
func NewExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, dir string, timeout time.Duration, name string, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, NewSubprocessError(append([]string{name}, args...), output, err)
	}
	return output, nil
}

// transientPatterns are substrings in git's stderr that indicate a
// retryable failure (lock contention), grounded on
// re-cinq-detergent/internal/git/git.go's isTransient.
var transientPatterns = []string{
	"index.lock",
	"cannot lock ref",
	"index file open failed",
}

func isTransient(output string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(output, p) {
			return true
		}
	}
	return false
}

// runWithRetry retries a local git invocation a handful of times with
// linear backoff when the failure looks like lock contention from a
// concurrent git process, the same defensive measure
// re-cinq-detergent/internal/git/git.go and
// alekspetrov-pilot/internal/executor/worktree.go both take for worktree
// creation races.
func runWithRetry(ctx context.Context, r Runner, dir string, timeout time.Duration, name string, args ...string) (string, error) {
	const maxAttempts = 3
	var lastOut string
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := r.Run(ctx, dir, timeout, name, args...)
		if err == nil {
			return out, nil
		}
		lastOut, lastErr = out, err
		if !isTransient(out) {
			break
		}
		time.Sleep(time.Duration(10*(attempt+1)) * time.Millisecond)
	}
	return lastOut, lastErr
}
