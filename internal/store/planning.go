package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SavePlanningSession upserts a planning session. Confirmation (status
// transitions) is non-destructive: callers re-save the same row with a new
// status rather than replacing it, per spec.md §3.
func (s *Store) SavePlanningSession(p *PlanningSession) error {
	nodesJSON, err := json.Marshal(p.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(p.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO planning_sessions (id, repo_id, title, base_branch, status, nodes_json, edges_json, chat_session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			base_branch = excluded.base_branch,
			status = excluded.status,
			nodes_json = excluded.nodes_json,
			edges_json = excluded.edges_json,
			chat_session_id = excluded.chat_session_id,
			updated_at = CURRENT_TIMESTAMP
	`, p.ID, p.RepoID, p.Title, p.BaseBranch, p.Status, string(nodesJSON), string(edgesJSON), p.ChatSessionID)
	return err
}

// GetPlanningSession retrieves a planning session by id. Returns
// sql.ErrNoRows if absent.
func (s *Store) GetPlanningSession(id string) (*PlanningSession, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, title, base_branch, status, nodes_json, edges_json,
			COALESCE(chat_session_id, ''), created_at, updated_at
		FROM planning_sessions WHERE id = ?
	`, id)
	return scanPlanningSession(row)
}

// ListPlanningSessions returns every planning session for a repo, most
// recently updated first.
func (s *Store) ListPlanningSessions(repoID string) ([]*PlanningSession, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, title, base_branch, status, nodes_json, edges_json,
			COALESCE(chat_session_id, ''), created_at, updated_at
		FROM planning_sessions WHERE repo_id = ? ORDER BY updated_at DESC
	`, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*PlanningSession
	for rows.Next() {
		p, err := scanPlanningSessionRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlanningSession(row rowScanner) (*PlanningSession, error) {
	return scanPlanningSessionRows(row)
}

func scanPlanningSessionRows(row rowScanner) (*PlanningSession, error) {
	var p PlanningSession
	var nodesJSON, edgesJSON string
	if err := row.Scan(&p.ID, &p.RepoID, &p.Title, &p.BaseBranch, &p.Status,
		&nodesJSON, &edgesJSON, &p.ChatSessionID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodesJSON), &p.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edgesJSON), &p.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return &p, nil
}

// ConfirmPlanningSession transitions a draft planning session to confirmed.
// Per §9 Design Notes, confirmation is non-destructive and reversible.
func (s *Store) ConfirmPlanningSession(id string) error {
	return s.setPlanningSessionStatus(id, PlanningConfirmed)
}

// DiscardPlanningSession transitions a planning session to discarded.
func (s *Store) DiscardPlanningSession(id string) error {
	return s.setPlanningSessionStatus(id, PlanningDiscarded)
}

func (s *Store) setPlanningSessionStatus(id, status string) error {
	res, err := s.db.Exec(`UPDATE planning_sessions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
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
