package store

import "encoding/json"

// UpsertBranchLink inserts or replaces the link record for a branch/URL
// pair, per spec.md §3.
func (s *Store) UpsertBranchLink(l *BranchLink) error {
	labelsJSON, err := json.Marshal(l.Labels)
	if err != nil {
		return err
	}
	reviewersJSON, err := json.Marshal(l.Reviewers)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		DELETE FROM branch_links WHERE repo_id = ? AND branch_name = ? AND url = ?
	`, l.RepoID, l.BranchName, l.URL)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO branch_links (repo_id, branch_name, link_type, url, number, title, status, checks_json, labels_json, reviewers_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.RepoID, l.BranchName, l.LinkType, l.URL, l.Number, l.Title, l.Status, l.Checks, string(labelsJSON), string(reviewersJSON))
	return err
}

// ListBranchLinksForBranch returns every link attached to a branch.
func (s *Store) ListBranchLinksForBranch(repoID, branchName string) ([]*BranchLink, error) {
	rows, err := s.db.Query(`
		SELECT id, repo_id, branch_name, link_type, url, number, COALESCE(title, ''),
			COALESCE(status, ''), COALESCE(checks_json, ''), labels_json, reviewers_json
		FROM branch_links WHERE repo_id = ? AND branch_name = ?
	`, repoID, branchName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*BranchLink
	for rows.Next() {
		l, err := scanBranchLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanBranchLink(row rowScanner) (*BranchLink, error) {
	var l BranchLink
	var labelsJSON, reviewersJSON string
	if err := row.Scan(&l.ID, &l.RepoID, &l.BranchName, &l.LinkType, &l.URL, &l.Number,
		&l.Title, &l.Status, &l.Checks, &labelsJSON, &reviewersJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(labelsJSON), &l.Labels); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reviewersJSON), &l.Reviewers); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteBranchLinksForBranch removes every link for a branch, part of the
// branch-delete cascade in spec.md §4.7.
func (s *Store) DeleteBranchLinksForBranch(repoID, branchName string) error {
	_, err := s.db.Exec(`DELETE FROM branch_links WHERE repo_id = ? AND branch_name = ?`, repoID, branchName)
	return err
}
