package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vibetree/vibetree/internal/cache"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

// branchTTL is how long a scan's fetched PR list stays cached for reuse by
// the next scan of the same repo.
const branchTTL = 2 * time.Minute

// VCS is the subset of *vcs.Adapter the scanner depends on, narrowed to an
// interface so tests can supply a fake.
type VCS interface {
	RepoPath() string
	DetectRepoID(ctx context.Context) (string, error)
	DefaultBranch(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) bool
	ListBranches(ctx context.Context) ([]vcs.Branch, error)
	ListWorktrees(ctx context.Context) ([]vcs.Worktree, error)
	ListPRs(ctx context.Context) ([]vcs.PullRequest, error)
	AheadBehindOf(ctx context.Context, base, branch string) (vcs.AheadBehind, error)
}

// Broadcaster publishes a scan result to subscribed clients, per spec.md
// §4.8. Implemented by internal/broadcast.ScannerAdapter over the Hub.
type Broadcaster interface {
	Broadcast(eventType, repoID string, payload any)
}

// Scanner runs the read-only scan procedure from spec.md §4.4.
type Scanner struct {
	newVCS      func(repoPath string) VCS
	store       *store.Store
	cache       *cache.Cache[[]vcs.PullRequest]
	broadcaster Broadcaster
}

// New builds a Scanner. newVCS constructs a VCS adapter rooted at a given
// local path; production callers pass a thin wrapper around
// vcs.NewAdapter.
func New(newVCS func(repoPath string) VCS, st *store.Store, prCache *cache.Cache[[]vcs.PullRequest], broadcaster Broadcaster) *Scanner {
	return &Scanner{newVCS: newVCS, store: st, cache: prCache, broadcaster: broadcaster}
}

// Scan runs the full 9-step procedure from spec.md §4.4 against localPath
// and returns the resulting snapshot.
func (s *Scanner) Scan(ctx context.Context, localPath string) (*Snapshot, error) {
	// Step 1: expand ~ and verify the path exists.
	expanded, err := expandHome(localPath)
	if err != nil {
		return nil, &BadRequestError{Message: err.Error()}
	}
	if info, err := os.Stat(expanded); err != nil || !info.IsDir() {
		return nil, &BadRequestError{Message: fmt.Sprintf("path does not exist or is not a directory: %s", expanded)}
	}

	adapter := s.newVCS(expanded)

	// Step 2: resolve repo id and base branch, honoring a pin override.
	repoID, err := adapter.DetectRepoID(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect repo id: %w", err)
	}
	if s.store != nil {
		_ = s.store.UpsertRepo(repoID, expanded)
	}

	defaultBranch, err := s.resolveBaseBranch(ctx, adapter, repoID)
	if err != nil {
		return nil, fmt.Errorf("resolve default branch: %w", err)
	}

	// Step 3: gather branches, worktrees, PRs, naming rule, tree spec.
	branches, err := adapter.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	worktrees, err := adapter.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	prs, _ := s.cache.GetOrFetch(repoID+"/prs", branchTTL, func() ([]vcs.PullRequest, error) {
		return adapter.ListPRs(ctx)
	}) // best-effort: empty on failure, per spec.md §4.4 step 3

	var rule *store.BranchNamingRule
	var treeSpec *store.TreeSpec
	if s.store != nil {
		rule, _ = s.store.GetBranchNamingRule(repoID)
		treeSpec, _ = s.store.GetTreeSpec(repoID)
	}

	// Step 4: edge inference.
	edges := inferEdges(branches, defaultBranch, treeSpec)

	// Step 5: ahead/behind per non-default branch.
	aheadBehind := make(map[string]vcs.AheadBehind, len(branches))
	for _, b := range branches {
		if b.Name == defaultBranch {
			continue
		}
		ab, err := adapter.AheadBehindOf(ctx, defaultBranch, b.Name)
		if err == nil {
			aheadBehind[b.Name] = ab
		}
	}

	prByBranch := make(map[string]*vcs.PullRequest, len(prs))
	for i := range prs {
		prByBranch[prs[i].Branch] = &prs[i]
	}
	worktreeByBranch := make(map[string]*vcs.Worktree, len(worktrees))
	for i := range worktrees {
		if worktrees[i].Branch != "" {
			worktreeByBranch[worktrees[i].Branch] = &worktrees[i]
		}
	}

	now := time.Now()
	nodes := make([]TreeNode, 0, len(branches))
	var warnings []Warning
	var namingPattern *regexp.Regexp
	if rule != nil && rule.Pattern != "" {
		namingPattern = compileBranchNamingPattern(rule.Pattern)
	}

	for _, b := range branches {
		node := TreeNode{
			BranchName:   b.Name,
			LastCommitAt: b.LastCommitAt,
			AheadBehind:  aheadBehind[b.Name],
		}

		wt := worktreeByBranch[b.Name]
		node.Worktree = wt
		dirty := wt != nil && wt.Dirty
		if dirty {
			node.Badges = append(node.Badges, BadgeDirty)
			warnings = append(warnings, Warning{Severity: SeverityWarn, Code: CodeDirty, Message: fmt.Sprintf("%s has uncommitted changes", b.Name), Meta: map[string]any{"branch": b.Name}})
		}

		if wt != nil {
			if hb, err := vcs.ReadHeartbeat(wt.Path); err == nil && vcs.IsHeartbeatActive(hb, now) {
				node.Badges = append(node.Badges, BadgeActive)
			}
		}

		if pr := prByBranch[b.Name]; pr != nil {
			node.PR = pr
			if pr.State == "MERGED" {
				node.Badges = append(node.Badges, BadgePRMerged)
			} else {
				node.Badges = append(node.Badges, BadgePR)
			}
			if pr.Draft {
				node.Badges = append(node.Badges, BadgeDraft)
			}
			switch pr.CheckConclusion {
			case vcs.CheckSuccess:
				node.Badges = append(node.Badges, BadgeCIPass)
			case vcs.CheckFailure:
				node.Badges = append(node.Badges, BadgeCIFail)
				warnings = append(warnings, Warning{Severity: SeverityError, Code: CodeCIFail, Message: fmt.Sprintf("%s has a failing PR check", b.Name), Meta: map[string]any{"branch": b.Name, "pr": pr.Number}})
			}
			switch pr.ReviewDecision {
			case vcs.ReviewApproved:
				node.Badges = append(node.Badges, BadgeApproved)
			case vcs.ReviewChangesRequested:
				node.Badges = append(node.Badges, BadgeChangesRequested)
			}
		}

		if b.Name != defaultBranch {
			if ab, ok := aheadBehind[b.Name]; ok && ab.Behind >= 1 {
				severity := SeverityWarn
				if ab.Behind >= 5 {
					severity = SeverityError
				}
				warnings = append(warnings, Warning{Severity: severity, Code: CodeBehindParent, Message: fmt.Sprintf("%s is %d commits behind %s", b.Name, ab.Behind, defaultBranch), Meta: map[string]any{"branch": b.Name, "behind": ab.Behind}})
			}
			if namingPattern != nil && !namingPattern.MatchString(b.Name) {
				warnings = append(warnings, Warning{Severity: SeverityWarn, Code: CodeBranchNamingViolation, Message: fmt.Sprintf("%s does not match the branch naming rule", b.Name), Meta: map[string]any{"branch": b.Name}})
			}
		}

		nodes = append(nodes, node)
	}

	warnings = append(warnings, treeDivergenceWarnings(branches, defaultBranch, treeSpec)...)

	// Step 8: restart hint, synthesized from the first active worktree found.
	restart := s.restartHint(worktrees, nodes)

	snapshot := &Snapshot{
		RepoID:        repoID,
		DefaultBranch: defaultBranch,
		Branches:      branches,
		Nodes:         nodes,
		Edges:         edges,
		Warnings:      warnings,
		Worktrees:     worktrees,
		BranchNaming:  rule,
		Restart:       restart,
		TreeSpec:      treeSpec,
		GeneratedAt:   now,
	}

	// Step 9: broadcast, then return.
	if s.broadcaster != nil {
		s.broadcaster.Broadcast("scan.updated", repoID, snapshot)
	}
	return snapshot, nil
}

// resolveBaseBranch honors a repo pin override if it names a real branch,
// else falls back to the adapter's default branch resolution, per spec.md
// §4.4 step 2.
func (s *Scanner) resolveBaseBranch(ctx context.Context, adapter VCS, repoID string) (string, error) {
	if s.store != nil {
		if override, err := s.store.GetRepoPin(repoID); err == nil && override != "" && adapter.BranchExists(ctx, override) {
			return override, nil
		}
	}
	return adapter.DefaultBranch(ctx)
}

// BadRequestError marks a scan failure caused by bad caller input (a
// missing path), distinct from an internal/VCS failure.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func compileBranchNamingPattern(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, regexp.QuoteMeta("{planId}"), `\d+`)
	escaped = strings.ReplaceAll(escaped, regexp.QuoteMeta("{taskSlug}"), `[a-z0-9-]+`)
	re, err := regexp.Compile("^" + escaped + "$")
	if err != nil {
		return nil
	}
	return re
}
