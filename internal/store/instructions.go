package store

// CreateTaskInstruction inserts a free-text instruction for a branch and
// appends the same content to its historical log, per spec.md §6's
// instructions CRUD surface.
func (s *Store) CreateTaskInstruction(repoID, branchName, content string) (*TaskInstruction, error) {
	res, err := s.db.Exec(`
		INSERT INTO task_instructions (repo_id, branch_name, content)
		VALUES (?, ?, ?)
	`, repoID, branchName, content)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`
		INSERT INTO instructions_log (repo_id, branch_name, content)
		VALUES (?, ?, ?)
	`, repoID, branchName, content); err != nil {
		return nil, err
	}
	return s.GetTaskInstruction(id)
}

// GetTaskInstruction retrieves a single instruction by id.
func (s *Store) GetTaskInstruction(id int64) (*TaskInstruction, error) {
	row := s.db.QueryRow(`
		SELECT id, repo_id, branch_name, content, created_at
		FROM task_instructions WHERE id = ?
	`, id)
	var t TaskInstruction
	if err := row.Scan(&t.ID, &t.RepoID, &t.BranchName, &t.Content, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTaskInstructionsForBranch returns every instruction attached to a
// branch, oldest first.
func (s *Store) ListTaskInstructionsForBranch(repoID, branchName string) ([]*TaskInstruction, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, branch_name, content, created_at
		FROM task_instructions WHERE repo_id = ? AND branch_name = ?
		ORDER BY created_at ASC
	`, repoID, branchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*TaskInstruction
	for rows.Next() {
		var t TaskInstruction
		if err := rows.Scan(&t.ID, &t.RepoID, &t.BranchName, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// ListInstructionLog returns the historical instruction log for a branch,
// oldest first.
func (s *Store) ListInstructionLog(repoID, branchName string) ([]*InstructionLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, branch_name, content, created_at
		FROM instructions_log WHERE repo_id = ? AND branch_name = ?
		ORDER BY created_at ASC
	`, repoID, branchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*InstructionLogEntry
	for rows.Next() {
		var e InstructionLogEntry
		if err := rows.Scan(&e.ID, &e.RepoID, &e.BranchName, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
