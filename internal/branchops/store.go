package branchops

import "github.com/vibetree/vibetree/internal/store"

// Store is the subset of *store.Store branchops depends on.
type Store interface {
	GetTreeSpec(repoID string) (*store.TreeSpec, error)
	GetRepo(id string) (*store.Repo, error)
	ReparentChildren(repoID, deletedBranch, baseBranch string) error
	DeleteBranchCascade(repoID, branchName string) error
	CleanupOrphaned(repoID string, keepBranches []string) error
}

// CacheInvalidator is satisfied by *cache.Cache[V] for any V.
type CacheInvalidator interface {
	InvalidateByPrefix(prefix string)
}
