// Package materializer turns a task graph into real git branches and
// worktrees, in parent-before-child order, per spec.md §4.6.
package materializer

import "github.com/vibetree/vibetree/internal/store"

// Task is one node to materialize.
type Task struct {
	ID           string
	BranchName   string
	ParentBranch string
	WorktreeName string
	Title        string
	Description  string
}

// ScriptConfig holds the repo's optional custom worktree-creation and
// post-creation scripts, per spec.md §4.6 step 3.
type ScriptConfig struct {
	WorktreeCreateScript string
	PostCreateScript     string
}

// PRStatus values for Result.PRStatus, distinct from Success so a PR
// failure never overloads the branch/worktree/chat outcome it rides
// alongside.
const (
	PRStatusCreated = "created"
	PRStatusSkipped = "skipped"
	PRStatusFailed  = "failed"
)

// Result is the per-task outcome of a materialization batch. Success
// reflects branch/worktree/chat-session creation only; PRStatus carries
// the independent outcome of the optional PR step, per spec.md §4.6 step 5.
type Result struct {
	TaskID        string
	BranchName    string
	WorktreePath  string
	ChatSessionID string
	Success       bool
	PRStatus      string
	Error         string
}

// BatchResult is the return value of a full materialization run.
type BatchResult struct {
	Results []Result
	Total   int
	Success int
	Failed  int
}

// Input bundles the parameters spec.md §4.6 lists for a materialization
// call.
type Input struct {
	RepoID     string
	LocalPath  string
	Tasks      []Task
	Edges      []store.Edge // From = parent task id, To = child task id
	CreatePRs  bool
	BaseBranch string
	Scripts    ScriptConfig
}
