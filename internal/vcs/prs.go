package vcs

import (
	"context"
	"encoding/json"
	"strings"
)

var prListFields = strings.Join([]string{
	"number", "title", "state", "url", "headRefName", "baseRefName",
	"isDraft", "labels", "assignees", "reviewDecision", "statusCheckRollup",
	"additions", "deletions", "changedFiles",
}, ",")

type prJSON struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	State       string `json:"state"`
	URL         string `json:"url"`
	HeadRefName string `json:"headRefName"`
	BaseRefName string `json:"baseRefName"`
	IsDraft     bool   `json:"isDraft"`
	Labels      []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	ReviewDecision    string `json:"reviewDecision"`
	StatusCheckRollup []struct {
		Conclusion string `json:"conclusion"`
	} `json:"statusCheckRollup"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changedFiles"`
}

func (p prJSON) toPullRequest() PullRequest {
	labels := make([]string, 0, len(p.Labels))
	for _, l := range p.Labels {
		labels = append(labels, l.Name)
	}
	assignees := make([]string, 0, len(p.Assignees))
	for _, a := range p.Assignees {
		assignees = append(assignees, a.Login)
	}
	conclusion := CheckNone
	for _, c := range p.StatusCheckRollup {
		switch c.Conclusion {
		case "FAILURE":
			conclusion = CheckFailure
		case "SUCCESS":
			if conclusion != CheckFailure {
				conclusion = CheckSuccess
			}
		case "":
			if conclusion == CheckNone {
				conclusion = CheckPending
			}
		}
	}
	return PullRequest{
		Number:          p.Number,
		Title:           p.Title,
		State:           p.State,
		URL:             p.URL,
		Branch:          p.HeadRefName,
		BaseBranch:      p.BaseRefName,
		Draft:           p.IsDraft,
		Labels:          labels,
		Assignees:       assignees,
		ReviewDecision:  ReviewDecision(p.ReviewDecision),
		CheckConclusion: conclusion,
		Additions:       p.Additions,
		Deletions:       p.Deletions,
		ChangedFiles:    p.ChangedFiles,
	}
}

// ListPRs returns every open and recently-closed PR for the current repo,
// grounded on vdemeester-lazyworktree/internal/git/service.go's FetchPRMap
// and FetchCIStatus, collapsed into a single gh invocation with the
// rollup check field requested inline instead of a second gh call.
func (a *Adapter) ListPRs(ctx context.Context) ([]PullRequest, error) {
	out, err := a.runGH(ctx, NetworkTimeout, "pr", "list",
		"--state", "all", "--limit", "200", "--json", prListFields)
	if err != nil {
		return nil, err
	}
	var raw []prJSON
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, err
	}
	prs := make([]PullRequest, 0, len(raw))
	for _, p := range raw {
		prs = append(prs, p.toPullRequest())
	}
	return prs, nil
}

// PRForBranch returns the PR whose head branch is branchName, if any.
func (a *Adapter) PRForBranch(ctx context.Context, branchName string) (*PullRequest, error) {
	out, err := a.runGH(ctx, NetworkTimeout, "pr", "list",
		"--state", "all", "--head", branchName, "--json", prListFields)
	if err != nil {
		return nil, err
	}
	var raw []prJSON
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	pr := raw[0].toPullRequest()
	return &pr, nil
}

// CreatePR opens a PR from branchName into baseBranch, grounded on
// alekspetrov-pilot/internal/executor/git.go's CreatePR: gh exits non-zero
// when a PR already exists for the branch but still prints its URL, so that
// case is treated as success rather than an error.
func (a *Adapter) CreatePR(ctx context.Context, branchName, baseBranch, title, body string) (string, error) {
	out, err := a.runGH(ctx, NetworkTimeout, "pr", "create",
		"--head", branchName, "--base", baseBranch,
		"--title", title, "--body", body)
	if err != nil {
		if strings.Contains(out, "already exists") {
			if url := extractPRURL(out); url != "" {
				return url, nil
			}
		}
		return "", NewSubprocessError([]string{"gh", "pr", "create"}, out, err)
	}
	return strings.TrimSpace(out), nil
}

// extractPRURL pulls a github.com/.../pull/<n> URL out of gh's combined
// output, used when gh reports "already exists" instead of a clean
// created-PR line.
func extractPRURL(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "github.com") && strings.Contains(line, "/pull/") {
			if idx := strings.Index(line, "https://"); idx >= 0 {
				url := line[idx:]
				if spaceIdx := strings.IndexAny(url, " \t\n"); spaceIdx > 0 {
					url = url[:spaceIdx]
				}
				return url
			}
		}
	}
	return ""
}
