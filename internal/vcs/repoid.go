package vcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// defaultBranchCandidates is the name-heuristic fallback order from
// spec.md §4.1.
var defaultBranchCandidates = []string{"main", "master", "develop"}

// DefaultBranch resolves the repository's default branch with the priority
// order from spec.md §4.1: (1) origin/HEAD symbolic ref, (2) hosting CLI's
// default-branch query, (3) name-heuristic fallback, (4) first branch or
// literal "main".
func (a *Adapter) DefaultBranch(ctx context.Context) (string, error) {
	if ref, err := a.runGit(ctx, LocalTimeout, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil {
		parts := strings.Split(ref, "/")
		if len(parts) > 0 {
			return parts[len(parts)-1], nil
		}
	}

	if name, err := a.hostingDefaultBranch(ctx); err == nil && name != "" {
		return name, nil
	}

	for _, candidate := range defaultBranchCandidates {
		if a.BranchExists(ctx, candidate) {
			return candidate, nil
		}
	}

	branches, err := a.ListBranches(ctx)
	if err == nil && len(branches) > 0 {
		return branches[0].Name, nil
	}
	return "main", nil
}

// hostingDefaultBranch asks `gh repo view --json defaultBranchRef` for the
// default branch.
func (a *Adapter) hostingDefaultBranch(ctx context.Context) (string, error) {
	out, err := a.runGH(ctx, NetworkTimeout, "repo", "view", "--json", "defaultBranchRef")
	if err != nil {
		return "", err
	}
	var parsed struct {
		DefaultBranchRef struct {
			Name string `json:"name"`
		} `json:"defaultBranchRef"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return "", err
	}
	return parsed.DefaultBranchRef.Name, nil
}

var scpLikeRemote = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+)[:/]([\w.-]+)/([\w.-]+?)(?:\.git)?$`)

// DetectRepoID resolves the repo id with the priority order from spec.md
// §4.1: hosting CLI nameWithOwner, then remote origin URL parsing, else
// LocalRepoID's local/<basename>-<hash8>.
func (a *Adapter) DetectRepoID(ctx context.Context) (string, error) {
	if out, err := a.runGH(ctx, NetworkTimeout, "repo", "view", "--json", "nameWithOwner"); err == nil {
		var parsed struct {
			NameWithOwner string `json:"nameWithOwner"`
		}
		if err := json.Unmarshal([]byte(out), &parsed); err == nil && parsed.NameWithOwner != "" {
			return parsed.NameWithOwner, nil
		}
	}

	if out, err := a.runGit(ctx, LocalTimeout, "remote", "get-url", "origin"); err == nil {
		if m := scpLikeRemote.FindStringSubmatch(strings.TrimSpace(out)); m != nil {
			return m[2] + "/" + m[3], nil
		}
	}

	return LocalRepoID(a.repoPath), nil
}

// LocalRepoID synthesizes a repo id for a repository with no detectable
// hosting identity: local/<basename>-<hash8>, namespaced by a short hash of
// the absolute path so two differently-located repos that share a folder
// name do not collide (SPEC_FULL.md §9, resolved Open Question 4).
func LocalRepoID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	hash := hex.EncodeToString(sum[:])[:8]
	return fmt.Sprintf("local/%s-%s", filepath.Base(abs), hash)
}
