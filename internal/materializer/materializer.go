package materializer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vibetree/vibetree/internal/store"
	"github.com/vibetree/vibetree/internal/vcs"
)

// VCS is the subset of *vcs.Adapter the materializer depends on.
type VCS interface {
	BranchExists(ctx context.Context, name string) bool
	CreateBranch(ctx context.Context, branchName, baseBranch string) error
	AddWorktree(ctx context.Context, path, branchName string) (string, error)
	PushSetUpstream(ctx context.Context, dir, branch string) (string, error)
	PRForBranch(ctx context.Context, branchName string) (*vcs.PullRequest, error)
	CreatePR(ctx context.Context, branchName, baseBranch, title, body string) (string, error)
}

// Materializer implements spec.md §4.6's tree materialization procedure.
type Materializer struct {
	vcs   VCS
	store *store.Store
}

// New builds a Materializer.
func New(v VCS, st *store.Store) *Materializer {
	return &Materializer{vcs: v, store: st}
}

// Materialize runs the full procedure from spec.md §4.6: topologically
// order the tasks, then create each task's branch/worktree/chat
// session/PR in turn, catching and recording per-task failures without
// aborting the batch.
func (m *Materializer) Materialize(ctx context.Context, in Input) (*BatchResult, error) {
	// Step 1: ensure the worktrees parent directory exists.
	worktreesDir := filepath.Join(filepath.Dir(in.LocalPath), filepath.Base(in.LocalPath)+"-worktrees")
	if err := os.MkdirAll(worktreesDir, 0755); err != nil {
		return nil, fmt.Errorf("ensure worktrees directory: %w", err)
	}

	// Step 2: topological sort, parent tasks before children.
	ids := make([]string, len(in.Tasks))
	byID := make(map[string]Task, len(in.Tasks))
	for i, t := range in.Tasks {
		ids[i] = t.ID
		byID[t.ID] = t
	}
	childToParent := make(map[string]string, len(in.Edges))
	for _, e := range in.Edges {
		childToParent[e.To] = e.From
	}
	order, err := topologicalSort(ids, childToParent)
	if err != nil {
		return nil, err
	}

	// Step 3: materialize each task in order, never aborting on a single
	// task's failure.
	actualBranchOf := make(map[string]string, len(order))
	batch := &BatchResult{}
	for _, id := range order {
		t := byID[id]
		res := m.materializeOne(ctx, in, t, childToParent, actualBranchOf)
		actualBranchOf[id] = res.BranchName
		batch.Results = append(batch.Results, res)
		batch.Total++
		if res.Success {
			batch.Success++
		} else {
			batch.Failed++
		}
	}

	// Step 4: mark the tree spec generated if anything succeeded.
	if batch.Success > 0 && m.store != nil {
		_ = m.store.MarkTreeSpecGenerated(in.RepoID)
	}
	return batch, nil
}

func (m *Materializer) materializeOne(ctx context.Context, in Input, t Task, childToParent map[string]string, actualBranchOf map[string]string) Result {
	res := Result{TaskID: t.ID, BranchName: t.BranchName}

	if err := vcs.ValidateBranchName(t.BranchName); err != nil {
		res.Error = err.Error()
		return res
	}

	parentBranch := t.ParentBranch
	if parentTaskID, ok := childToParent[t.ID]; ok {
		if materialized, ok := actualBranchOf[parentTaskID]; ok && materialized != "" {
			parentBranch = materialized
		}
	}
	if parentBranch == "" {
		parentBranch = in.BaseBranch
	}

	if !m.vcs.BranchExists(ctx, t.BranchName) {
		if err := m.vcs.CreateBranch(ctx, t.BranchName, parentBranch); err != nil {
			res.Error = fmt.Sprintf("create branch: %v", err)
			return res
		}
	}

	worktreeName := t.WorktreeName
	if worktreeName == "" {
		worktreeName = strings.ReplaceAll(t.BranchName, "/", "-")
	}
	worktreesDir := filepath.Join(filepath.Dir(in.LocalPath), filepath.Base(in.LocalPath)+"-worktrees")
	worktreePath := filepath.Join(worktreesDir, worktreeName)
	res.WorktreePath = worktreePath

	if _, err := os.Stat(worktreePath); err != nil {
		if err := m.createWorktree(ctx, in.Scripts.WorktreeCreateScript, worktreePath, t.BranchName, in.LocalPath); err != nil {
			res.Error = fmt.Sprintf("create worktree: %v", err)
			return res
		}
	}

	if in.Scripts.PostCreateScript != "" {
		go runPostCreateScript(in.Scripts.PostCreateScript, worktreePath, t.BranchName, in.LocalPath)
	}

	chatSessionID := uuid.New().String()
	if m.store != nil {
		if err := m.store.CreateChatSession(&store.ChatSession{
			ID:           chatSessionID,
			WorktreePath: worktreePath,
			BranchName:   t.BranchName,
			RepoID:       in.RepoID,
		}); err != nil {
			res.Error = fmt.Sprintf("create chat session: %v", err)
			return res
		}
	}
	res.ChatSessionID = chatSessionID
	res.Success = true

	if in.CreatePRs {
		if err := m.ensurePR(ctx, in.RepoID, t, parentBranch, worktreePath); err != nil {
			res.PRStatus = PRStatusFailed
			res.Error = fmt.Sprintf("create pr: %v", err)
			return res
		}
		res.PRStatus = PRStatusCreated
	} else {
		res.PRStatus = PRStatusSkipped
	}

	return res
}

// createWorktree runs the repo's custom worktree-creation script if
// configured, substituting {worktreePath}/{branchName}/{localPath}; else
// it falls back to the default `git worktree add`, per spec.md §4.6 step 3.
func (m *Materializer) createWorktree(ctx context.Context, script, worktreePath, branchName, localPath string) error {
	if script == "" {
		_, err := m.vcs.AddWorktree(ctx, worktreePath, branchName)
		return err
	}
	cmd := substitutePlaceholders(script, worktreePath, branchName, localPath)
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = localPath
	out, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("worktree creation script failed: %w: %s", err, out)
	}
	return nil
}

// runPostCreateScript fires the repo's post-creation script in the new
// worktree without waiting for it, per spec.md §4.6 step 3.
func runPostCreateScript(script, worktreePath, branchName, localPath string) {
	cmd := substitutePlaceholders(script, worktreePath, branchName, localPath)
	c := exec.Command("sh", "-c", cmd)
	c.Dir = worktreePath
	_ = c.Run()
}

func substitutePlaceholders(script, worktreePath, branchName, localPath string) string {
	r := strings.NewReplacer(
		"{worktreePath}", worktreePath,
		"{branchName}", branchName,
		"{localPath}", localPath,
	)
	return r.Replace(script)
}

func (m *Materializer) ensurePR(ctx context.Context, repoID string, t Task, parentBranch, worktreePath string) error {
	existing, err := m.vcs.PRForBranch(ctx, t.BranchName)
	if err == nil && existing != nil {
		return m.persistPRLink(repoID, t.BranchName, existing.URL, existing.Number, existing.Title)
	}

	if _, err := m.vcs.PushSetUpstream(ctx, worktreePath, t.BranchName); err != nil {
		return fmt.Errorf("push branch: %w", err)
	}

	body := t.Description
	if body == "" {
		body = t.Title
	}
	url, err := m.vcs.CreatePR(ctx, t.BranchName, parentBranch, t.Title, body)
	if err != nil {
		return err
	}
	return m.persistPRLink(repoID, t.BranchName, url, 0, t.Title)
}

func (m *Materializer) persistPRLink(repoID, branchName, url string, number int, title string) error {
	if m.store == nil {
		return nil
	}
	return m.store.UpsertBranchLink(&store.BranchLink{
		RepoID:     repoID,
		BranchName: branchName,
		LinkType:   store.LinkPR,
		URL:        url,
		Number:     number,
		Title:      title,
	})
}
