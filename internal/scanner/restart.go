package scanner

import (
	"fmt"
	"strings"

	"github.com/vibetree/vibetree/internal/vcs"
)

// restartHint synthesizes the markdown hint block for step 8 of spec.md
// §4.4: a cd command plus a "current state" summary plus at most three
// action items drawn from the first active worktree's branch's warnings.
func (s *Scanner) restartHint(worktrees []vcs.Worktree, nodes []TreeNode) string {
	nodesByBranch := make(map[string]*TreeNode, len(nodes))
	for i := range nodes {
		nodesByBranch[nodes[i].BranchName] = &nodes[i]
	}

	for _, wt := range worktrees {
		node := nodesByBranch[wt.Branch]
		if node == nil || !hasBadge(node.Badges, BadgeActive) {
			continue
		}
		return buildRestartHint(wt, node)
	}
	return ""
}

func hasBadge(badges []string, want string) bool {
	for _, b := range badges {
		if b == want {
			return true
		}
	}
	return false
}

func buildRestartHint(wt vcs.Worktree, node *TreeNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```bash\ncd %s\n```\n\n", wt.Path)
	fmt.Fprintf(&b, "**Current state:** branch `%s`, %d ahead / %d behind default\n", wt.Branch, node.AheadBehind.Ahead, node.AheadBehind.Behind)
	if node.PR != nil {
		fmt.Fprintf(&b, "PR #%d: %s (%s)\n", node.PR.Number, node.PR.Title, node.PR.State)
	}

	items := restartActionItems(wt.Dirty, node)
	if len(items) == 0 {
		return b.String()
	}
	b.WriteString("\n**Action items:**\n")
	for i, item := range items {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func restartActionItems(dirty bool, node *TreeNode) []string {
	var items []string
	if dirty {
		items = append(items, "commit or stash uncommitted changes")
	}
	if node.AheadBehind.Behind >= 1 {
		items = append(items, fmt.Sprintf("rebase onto default branch (%d commits behind)", node.AheadBehind.Behind))
	}
	if hasBadge(node.Badges, BadgeCIFail) {
		items = append(items, "fix the failing CI check")
	}
	if hasBadge(node.Badges, BadgeChangesRequested) {
		items = append(items, "address requested review changes")
	}
	return items
}
