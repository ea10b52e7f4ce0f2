package store

// SaveTerminalSession upserts a terminal session row keyed by its unique
// worktree path, per spec.md §3 "at most one live PTY per worktree path."
func (s *Store) SaveTerminalSession(t *TerminalSession) error {
	_, err := s.db.Exec(`
		INSERT INTO terminal_sessions (id, repo_id, worktree_path, pid, status, last_output)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(worktree_path) DO UPDATE SET
			pid = excluded.pid,
			status = excluded.status,
			last_output = excluded.last_output,
			updated_at = CURRENT_TIMESTAMP
	`, t.ID, t.RepoID, t.WorktreePath, t.Pid, t.Status, t.LastOutput)
	return err
}

// GetTerminalSessionByWorktree retrieves the terminal session for a
// worktree path, if any.
func (s *Store) GetTerminalSessionByWorktree(worktreePath string) (*TerminalSession, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, worktree_path, pid, status, COALESCE(last_output, ''), created_at, updated_at
		FROM terminal_sessions WHERE worktree_path = ?
	`, worktreePath)
	return scanTerminalSession(row)
}

// GetTerminalSessionByID retrieves a terminal session by its id.
func (s *Store) GetTerminalSessionByID(id string) (*TerminalSession, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, worktree_path, pid, status, COALESCE(last_output, ''), created_at, updated_at
		FROM terminal_sessions WHERE id = ?
	`, id)
	return scanTerminalSession(row)
}

// ListTerminalSessions returns every terminal session for a repo.
func (s *Store) ListTerminalSessions(repoID string) ([]*TerminalSession, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, worktree_path, pid, status, COALESCE(last_output, ''), created_at, updated_at
		FROM terminal_sessions WHERE repo_id = ?
	`, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*TerminalSession
	for rows.Next() {
		t, err := scanTerminalSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTerminalSession(row rowScanner) (*TerminalSession, error) {
	var t TerminalSession
	if err := row.Scan(&t.ID, &t.RepoID, &t.WorktreePath, &t.Pid, &t.Status, &t.LastOutput, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ResetAllTerminalSessionsToStopped clears pid and marks every terminal
// session stopped. Called once at server startup, per spec.md §3
// "the live PTY does not [persist] — status is reset to stopped and pid
// cleared."
func (s *Store) ResetAllTerminalSessionsToStopped() error {
	_, err := s.db.Exec(`UPDATE terminal_sessions SET status = ?, pid = 0, updated_at = CURRENT_TIMESTAMP`, TerminalStopped)
	return err
}

// UpdateTerminalSessionOutput persists the current ring-buffer tail so a
// reconnecting client can be replayed even across a server restart's
// bookkeeping reset.
func (s *Store) UpdateTerminalSessionOutput(worktreePath, lastOutput string) error {
	_, err := s.db.Exec(`UPDATE terminal_sessions SET last_output = ?, updated_at = CURRENT_TIMESTAMP WHERE worktree_path = ?`, lastOutput, worktreePath)
	return err
}
