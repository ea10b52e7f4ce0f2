// Package scanner implements the read-only repo scan procedure: gather
// branches/worktrees/PRs for a local repo, infer the parent→child branch
// graph, compute per-branch badges and warnings, and broadcast the result,
// per spec.md §4.4.
package scanner

import (
	"time"

	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

// Badge values a tree node may carry.
const (
	BadgeDirty             = "dirty"
	BadgeActive            = "active"
	BadgePR                = "pr"
	BadgePRMerged          = "pr-merged"
	BadgeDraft             = "draft"
	BadgeCIFail            = "ci-fail"
	BadgeCIPass            = "ci-pass"
	BadgeApproved          = "approved"
	BadgeChangesRequested  = "changes-requested"
)

// Edge confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Warning severities.
const (
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Warning codes.
const (
	CodeBehindParent           = "BEHIND_PARENT"
	CodeDirty                  = "DIRTY"
	CodeCIFail                 = "CI_FAIL"
	CodeBranchNamingViolation  = "BRANCH_NAMING_VIOLATION"
	CodeTreeDivergence         = "TREE_DIVERGENCE"
)

// TreeNode is one branch's computed view within a scan, per spec.md §3.
type TreeNode struct {
	BranchName   string             `json:"branchName"`
	Badges       []string           `json:"badges"`
	LastCommitAt time.Time          `json:"lastCommitAt"`
	PR           *vcs.PullRequest   `json:"pr,omitempty"`
	Worktree     *vcs.Worktree      `json:"worktree,omitempty"`
	AheadBehind  vcs.AheadBehind    `json:"aheadBehind"`
}

// TreeEdge is a parent→child relationship inferred (or designed) for a
// scan, per spec.md §3. Invariant: exactly one edge targets any non-root
// branch.
type TreeEdge struct {
	Parent     string `json:"parent"`
	Child      string `json:"child"`
	Confidence string `json:"confidence"`
	IsDesigned bool   `json:"isDesigned,omitempty"`
}

// Warning is a single scan-time finding, per spec.md §3.
type Warning struct {
	Severity string         `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Snapshot is the ephemeral, computed result of a scan, per spec.md §3.
// It is never persisted — the scanner recomputes it per request.
type Snapshot struct {
	RepoID        string                   `json:"repoId"`
	DefaultBranch string                   `json:"defaultBranch"`
	Branches      []vcs.Branch             `json:"branches"`
	Nodes         []TreeNode               `json:"nodes"`
	Edges         []TreeEdge               `json:"edges"`
	Warnings      []Warning                `json:"warnings"`
	Worktrees     []vcs.Worktree            `json:"worktrees"`
	BranchNaming  *store.BranchNamingRule   `json:"rules,omitempty"`
	Restart       string                   `json:"restart,omitempty"`
	TreeSpec      *store.TreeSpec          `json:"treeSpec,omitempty"`
	GeneratedAt   time.Time                `json:"generatedAt"`
}
