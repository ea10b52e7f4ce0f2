package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// DeleteBranchCascade removes everything the store owns for a deleted
// branch: chat sessions (and their messages, via FK cascade), task
// instructions, branch links, and instructions log rows, per spec.md
// §4.7 "Delete branch". A failed step does not abort the cascade: every
// step runs, and the failures are joined into the returned error for the
// caller (internal/branchops) to log. Each delete below is a single
// statement, so a failure on one never leaves a partial multi-row cascade.
func (s *Store) DeleteBranchCascade(repoID, branchName string) error {
	var errs []error
	if _, err := s.db.Exec(`DELETE FROM chat_sessions WHERE repo_id = ? AND branch_name = ?`, repoID, branchName); err != nil {
		errs = append(errs, fmt.Errorf("delete chat sessions: %w", err))
	}
	if _, err := s.db.Exec(`DELETE FROM task_instructions WHERE repo_id = ? AND branch_name = ?`, repoID, branchName); err != nil {
		errs = append(errs, fmt.Errorf("delete task instructions: %w", err))
	}
	if err := s.DeleteBranchLinksForBranch(repoID, branchName); err != nil {
		errs = append(errs, fmt.Errorf("delete branch links: %w", err))
	}
	if _, err := s.db.Exec(`DELETE FROM instructions_log WHERE repo_id = ? AND branch_name = ?`, repoID, branchName); err != nil {
		errs = append(errs, fmt.Errorf("delete instructions log: %w", err))
	}
	return errors.Join(errs...)
}

// CleanupOrphaned deletes every chat session / task instruction / branch
// link / instructions log row for repoID whose branch_name is not in
// keepBranches, per spec.md §4.7 "Cleanup orphaned".
func (s *Store) CleanupOrphaned(repoID string, keepBranches []string) error {
	keep := make(map[string]bool, len(keepBranches))
	for _, b := range keepBranches {
		keep[b] = true
	}

	branches, err := s.distinctBranchNames(repoID)
	if err != nil {
		return err
	}
	for _, b := range branches {
		if keep[b] {
			continue
		}
		if err := s.DeleteBranchCascade(repoID, b); err != nil {
			return fmt.Errorf("cleanup orphaned branch %q: %w", b, err)
		}
	}
	return nil
}

func (s *Store) distinctBranchNames(repoID string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, table := range []string{"chat_sessions", "task_instructions", "branch_links", "instructions_log"} {
		rows, err := s.db.Query(fmt.Sprintf(`SELECT DISTINCT branch_name FROM %s WHERE repo_id = ?`, table), repoID) //nolint:gosec // table is one of four fixed literals above, never user input
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var b string
			if err := rows.Scan(&b); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[b] {
				seen[b] = true
				result = append(result, b)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return result, nil
}

// ReparentChildren rewrites every tree spec and planning session in repoID
// so that branches whose parent was deletedBranch now point at
// deletedBranch's own parent (or baseBranch if deletedBranch had none), and
// drops the edge that targeted deletedBranch, per spec.md §4.3 / §4.7. Each
// document is rewritten in its own transaction.
func (s *Store) ReparentChildren(repoID, deletedBranch, baseBranch string) error {
	if err := s.reparentTreeSpec(repoID, deletedBranch, baseBranch); err != nil {
		return fmt.Errorf("reparent tree spec: %w", err)
	}
	if err := s.reparentPlanningSessions(repoID, deletedBranch, baseBranch); err != nil {
		return fmt.Errorf("reparent planning sessions: %w", err)
	}
	return nil
}

func (s *Store) reparentTreeSpec(repoID, deletedBranch, baseBranch string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT base_branch, nodes_json, edges_json FROM tree_specs WHERE repo_id = ?`, repoID)
	var txBaseBranch, nodesJSON, edgesJSON string
	if err := row.Scan(&txBaseBranch, &nodesJSON, &edgesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	var edges []Edge
	if err := json.Unmarshal([]byte(edgesJSON), &edges); err != nil {
		return err
	}

	effectiveBase := baseBranch
	if effectiveBase == "" {
		effectiveBase = txBaseBranch
	}
	edges = reparentEdges(edges, deletedBranch, effectiveBase)

	newEdgesJSON, err := json.Marshal(edges)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE tree_specs SET edges_json = ?, updated_at = CURRENT_TIMESTAMP WHERE repo_id = ?`, string(newEdgesJSON), repoID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) reparentPlanningSessions(repoID, deletedBranch, baseBranch string) error {
	ids, err := s.planningSessionIDs(repoID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.reparentPlanningSession(id, deletedBranch, baseBranch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) planningSessionIDs(repoID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM planning_sessions WHERE repo_id = ?`, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) reparentPlanningSession(id, deletedBranch, baseBranch string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT COALESCE(base_branch, ''), edges_json FROM planning_sessions WHERE id = ?`, id)
	var txBaseBranch, edgesJSON string
	if err := row.Scan(&txBaseBranch, &edgesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	var edges []Edge
	if err := json.Unmarshal([]byte(edgesJSON), &edges); err != nil {
		return err
	}

	effectiveBase := baseBranch
	if effectiveBase == "" {
		effectiveBase = txBaseBranch
	}
	edges = reparentEdges(edges, deletedBranch, effectiveBase)

	newEdgesJSON, err := json.Marshal(edges)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE planning_sessions SET edges_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(newEdgesJSON), id); err != nil {
		return err
	}
	return tx.Commit()
}

// reparentEdges removes the edge targeting deletedBranch and rewrites every
// edge whose parent is deletedBranch to point at deletedBranch's own parent
// (p->b->c, delete b => p->c), falling back to baseBranch when
// deletedBranch had no parent edge.
func reparentEdges(edges []Edge, deletedBranch, baseBranch string) []Edge {
	parentOfDeleted := baseBranch
	for _, e := range edges {
		if e.To == deletedBranch {
			parentOfDeleted = e.From
			break
		}
	}

	result := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.To == deletedBranch {
			continue
		}
		if e.From == deletedBranch {
			e.From = parentOfDeleted
		}
		result = append(result, e)
	}
	return result
}
