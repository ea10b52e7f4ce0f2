package store

// CreateChatSession inserts a new chat session row pointing at a worktree
// and branch, per spec.md §4.6 step 3.
func (s *Store) CreateChatSession(c *ChatSession) error {
	status := c.Status
	if status == "" {
		status = ChatActive
	}
	_, err := s.db.Exec(`
		INSERT INTO chat_sessions (id, worktree_path, branch_name, repo_id, status)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.WorktreePath, c.BranchName, c.RepoID, status)
	return err
}

// GetChatSession retrieves a chat session by id.
func (s *Store) GetChatSession(id string) (*ChatSession, error) {
	row := s.db.QueryRow(`
		SELECT id, worktree_path, branch_name, repo_id, status, created_at, updated_at
		FROM chat_sessions WHERE id = ?
	`, id)
	var c ChatSession
	if err := row.Scan(&c.ID, &c.WorktreePath, &c.BranchName, &c.RepoID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatSessionsForBranch returns every chat session attached to a
// branch.
func (s *Store) ListChatSessionsForBranch(repoID, branchName string) ([]*ChatSession, error) {
	rows, err := s.db.Query(`
		SELECT id, worktree_path, branch_name, repo_id, status, created_at, updated_at
		FROM chat_sessions WHERE repo_id = ? AND branch_name = ?
	`, repoID, branchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ChatSession
	for rows.Next() {
		var c ChatSession
		if err := rows.Scan(&c.ID, &c.WorktreePath, &c.BranchName, &c.RepoID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// ArchiveChatSession marks a chat session archived.
func (s *Store) ArchiveChatSession(id string) error {
	_, err := s.db.Exec(`UPDATE chat_sessions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, ChatArchived, id)
	return err
}

// AppendChatMessage appends a message to a chat session. Messages are
// append-only, per spec.md §3.
func (s *Store) AppendChatMessage(chatSessionID, role, content string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO chat_messages (chat_session_id, role, content) VALUES (?, ?, ?)
	`, chatSessionID, role, content)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListChatMessages returns every message in a chat session, oldest first.
func (s *Store) ListChatMessages(chatSessionID string) ([]*ChatMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_session_id, role, content, created_at
		FROM chat_messages WHERE chat_session_id = ? ORDER BY id ASC
	`, chatSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatSessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}
