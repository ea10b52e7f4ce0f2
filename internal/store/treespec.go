package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertTreeSpec atomically writes the full node/edge graph for a repo's
// tree spec, per spec.md §4.3 "atomic upsert for tree spec and planning
// session edits."
func (s *Store) UpsertTreeSpec(t *TreeSpec) error {
	nodesJSON, err := json.Marshal(t.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(t.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	status := t.Status
	if status == "" {
		status = TreeSpecDraft
	}

	_, err = s.db.Exec(`
		INSERT INTO tree_specs (repo_id, base_branch, status, nodes_json, edges_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			base_branch = excluded.base_branch,
			nodes_json = excluded.nodes_json,
			edges_json = excluded.edges_json,
			updated_at = CURRENT_TIMESTAMP
	`, t.RepoID, t.BaseBranch, status, string(nodesJSON), string(edgesJSON))
	return err
}

// GetTreeSpec retrieves the tree spec for a repo. Returns sql.ErrNoRows if
// the repo has none yet.
func (s *Store) GetTreeSpec(repoID string) (*TreeSpec, error) {
	row := s.db.QueryRow(`
		SELECT repo_id, base_branch, status, nodes_json, edges_json, updated_at
		FROM tree_specs WHERE repo_id = ?
	`, repoID)
	return scanTreeSpec(row)
}

func scanTreeSpec(row rowScanner) (*TreeSpec, error) {
	var t TreeSpec
	var nodesJSON, edgesJSON string
	if err := row.Scan(&t.RepoID, &t.BaseBranch, &t.Status, &nodesJSON, &edgesJSON, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodesJSON), &t.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edgesJSON), &t.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return &t, nil
}

// ConfirmTreeSpec transitions draft -> confirmed. Callers must enforce the
// "baseBranch set, >=1 node, >=1 root" precondition from spec.md §6 before
// calling this.
func (s *Store) ConfirmTreeSpec(repoID string) error {
	return s.setTreeSpecStatus(repoID, TreeSpecConfirmed)
}

// UnconfirmTreeSpec transitions confirmed -> draft.
func (s *Store) UnconfirmTreeSpec(repoID string) error {
	return s.setTreeSpecStatus(repoID, TreeSpecDraft)
}

// MarkTreeSpecGenerated transitions a tree spec to generated once the
// materializer has successfully created at least one task, per spec.md
// §4.6 step 4.
func (s *Store) MarkTreeSpecGenerated(repoID string) error {
	return s.setTreeSpecStatus(repoID, TreeSpecGenerated)
}

func (s *Store) setTreeSpecStatus(repoID, status string) error {
	res, err := s.db.Exec(`UPDATE tree_specs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE repo_id = ?`, status, repoID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
