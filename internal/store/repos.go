package store

// UpsertRepo records (or refreshes) the last known local path for a repo
// id, per SPEC_FULL.md §3.1.
func (s *Store) UpsertRepo(id, localPath string) error {
	_, err := s.db.Exec(`
		INSERT INTO repos (id, local_path, last_scanned_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			local_path = excluded.local_path,
			last_scanned_at = CURRENT_TIMESTAMP
	`, id, localPath)
	return err
}

// GetRepo retrieves a repo by id.
func (s *Store) GetRepo(id string) (*Repo, error) {
	row := s.db.QueryRow(`SELECT id, local_path, COALESCE(last_scanned_at, CURRENT_TIMESTAMP) FROM repos WHERE id = ?`, id)
	var r Repo
	if err := row.Scan(&r.ID, &r.LocalPath, &r.LastScannedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRepos returns every known repo, most recently scanned first.
func (s *Store) ListRepos() ([]*Repo, error) {
	rows, err := s.db.Query(`SELECT id, local_path, COALESCE(last_scanned_at, CURRENT_TIMESTAMP) FROM repos ORDER BY last_scanned_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Repo
	for rows.Next() {
		var r Repo
		if err := rows.Scan(&r.ID, &r.LocalPath, &r.LastScannedAt); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// GetRepoPin returns the repo's pinned base-branch override, or
// sql.ErrNoRows if none is set, consulted by the scanner at spec.md §4.4
// step 2.
func (s *Store) GetRepoPin(repoID string) (string, error) {
	row := s.db.QueryRow(`SELECT base_branch_override FROM repo_pins WHERE repo_id = ?`, repoID)
	var override string
	if err := row.Scan(&override); err != nil {
		return "", err
	}
	return override, nil
}

// SetRepoPin sets the repo's pinned base-branch override.
func (s *Store) SetRepoPin(repoID, baseBranchOverride string) error {
	_, err := s.db.Exec(`
		INSERT INTO repo_pins (repo_id, base_branch_override)
		VALUES (?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET base_branch_override = excluded.base_branch_override
	`, repoID, baseBranchOverride)
	return err
}
