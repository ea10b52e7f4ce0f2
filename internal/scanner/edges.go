package scanner

import (
	"strings"

	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

// inferEdges computes the parent→child graph for step 4 of spec.md §4.4:
// for each non-default branch, the best parent is the other branch whose
// name is the longest prefix of this branch's name followed by '/' or '-';
// falling back to defaultBranch at low confidence when no such branch
// exists. A designed edge from the tree spec overrides the inferred one.
func inferEdges(branches []vcs.Branch, defaultBranch string, treeSpec *store.TreeSpec) []TreeEdge {
	designed := make(map[string]string)
	if treeSpec != nil {
		for _, e := range treeSpec.Edges {
			designed[e.To] = e.From
		}
	}

	edges := inferEdgesFromGit(branches, defaultBranch)
	for i, e := range edges {
		if parent, ok := designed[e.Child]; ok {
			edges[i] = TreeEdge{Parent: parent, Child: e.Child, Confidence: ConfidenceHigh, IsDesigned: true}
		}
	}
	return edges
}

// inferEdgesFromGit computes the parent→child graph from branch names
// alone, ignoring any tree-spec override — the prefix-match rule described
// by inferEdges, ignoring designed edges entirely. Used both as inferEdges'
// base case and as the ground truth treeDivergenceWarnings compares
// designed edges against.
func inferEdgesFromGit(branches []vcs.Branch, defaultBranch string) []TreeEdge {
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		if b.Name != defaultBranch {
			names = append(names, b.Name)
		}
	}

	edges := make([]TreeEdge, 0, len(names))
	for _, child := range names {
		best := ""
		bestLen := -1
		for _, candidate := range names {
			if candidate == child {
				continue
			}
			if isBranchPrefix(candidate, child) && len(candidate) > bestLen {
				best = candidate
				bestLen = len(candidate)
			}
		}

		if best != "" {
			edges = append(edges, TreeEdge{Parent: best, Child: child, Confidence: ConfidenceHigh})
		} else {
			edges = append(edges, TreeEdge{Parent: defaultBranch, Child: child, Confidence: ConfidenceLow})
		}
	}
	return edges
}

// isBranchPrefix reports whether child's name begins with prefix followed
// by a '/' or '-' separator.
func isBranchPrefix(prefix, child string) bool {
	if !strings.HasPrefix(child, prefix) {
		return false
	}
	rest := child[len(prefix):]
	return strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "-")
}

// treeDivergenceWarnings emits one TREE_DIVERGENCE warning per designed
// edge from the tree spec that has no corresponding edge actually inferred
// from git, per spec.md §4.4 step 7. branches/defaultBranch recompute the
// purely git-inferred graph here rather than reusing inferEdges' output,
// which has already substituted each designed edge in — comparing against
// that would make every designed edge trivially match its own override.
func treeDivergenceWarnings(branches []vcs.Branch, defaultBranch string, treeSpec *store.TreeSpec) []Warning {
	if treeSpec == nil {
		return nil
	}

	gitInferred := inferEdgesFromGit(branches, defaultBranch)
	inferredSet := make(map[string]string, len(gitInferred))
	for _, e := range gitInferred {
		inferredSet[e.Child] = e.Parent
	}

	var warnings []Warning
	for _, e := range treeSpec.Edges {
		if parent, ok := inferredSet[e.To]; !ok || parent != e.From {
			warnings = append(warnings, Warning{
				Severity: SeverityWarn,
				Code:     CodeTreeDivergence,
				Message:  "designed edge " + e.From + " -> " + e.To + " has no matching branch relationship in git",
				Meta:     map[string]any{"parent": e.From, "child": e.To},
			})
		}
	}
	return warnings
}
