package gateway

import (
	"log/slog"

	"github.com/vibetree/vibetree/internal/pty"
	"github.com/vibetree/vibetree/internal/scanner"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

// Deps bundles the subsystems the gateway dispatches requests to. NewVCS
// builds a fresh adapter rooted at a given repo's local path — branch
// operations and materialization are constructed per-request since each
// targets a different working copy.
type Deps struct {
	Store     *store.Store
	NewVCS    func(localPath string) *vcs.Adapter
	Scanner   *scanner.Scanner
	Terminals *pty.Manager
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// repoLocalPath resolves a repoId to its last-known local path via the
// store, for endpoints that take a repoId rather than a localPath.
func (d Deps) repoLocalPath(repoID string) (string, error) {
	repo, err := d.Store.GetRepo(repoID)
	if err != nil {
		return "", err
	}
	return repo.LocalPath, nil
}
