package store

import "encoding/json"

// GetBranchNamingRule returns the repo's branch naming rule, or
// sql.ErrNoRows if none has been configured.
func (s *Store) GetBranchNamingRule(repoID string) (*BranchNamingRule, error) {
	row := s.db.QueryRow(`SELECT repo_id, pattern, COALESCE(description, ''), examples_json FROM branch_naming_rules WHERE repo_id = ?`, repoID)
	var r BranchNamingRule
	var examplesJSON string
	if err := row.Scan(&r.RepoID, &r.Pattern, &r.Description, &examplesJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(examplesJSON), &r.Examples); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetBranchNamingRule upserts the repo's branch naming rule.
func (s *Store) SetBranchNamingRule(r *BranchNamingRule) error {
	examplesJSON, err := json.Marshal(r.Examples)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO branch_naming_rules (repo_id, pattern, description, examples_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			pattern = excluded.pattern,
			description = excluded.description,
			examples_json = excluded.examples_json
	`, r.RepoID, r.Pattern, r.Description, string(examplesJSON))
	return err
}
