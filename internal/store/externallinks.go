package store

import "database/sql"

// CreateExternalLink attaches an external reference to a planning session,
// per spec.md §3.
func (s *Store) CreateExternalLink(l *ExternalLink) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO external_links (planning_session_id, url, link_type, title)
		VALUES (?, ?, ?, ?)
	`, l.PlanningSessionID, l.URL, l.LinkType, l.Title)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListExternalLinksForSession returns every external link attached to a
// planning session.
func (s *Store) ListExternalLinksForSession(planningSessionID string) ([]*ExternalLink, error) {
	rows, err := s.db.Query(`
		SELECT id, planning_session_id, url, link_type, COALESCE(title, ''),
			COALESCE(content_cache, ''), last_fetched_at
		FROM external_links WHERE planning_session_id = ?
	`, planningSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ExternalLink
	for rows.Next() {
		l, err := scanExternalLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanExternalLink(row rowScanner) (*ExternalLink, error) {
	var l ExternalLink
	var lastFetched sql.NullTime
	if err := row.Scan(&l.ID, &l.PlanningSessionID, &l.URL, &l.LinkType, &l.Title, &l.ContentCache, &lastFetched); err != nil {
		return nil, err
	}
	if lastFetched.Valid {
		l.LastFetchedAt = &lastFetched.Time
	}
	return &l, nil
}

// RefreshExternalLinkCache updates an external link's cached content.
// Content cache is only ever refreshed on explicit request, per spec.md §3.
func (s *Store) RefreshExternalLinkCache(id int64, content string) error {
	_, err := s.db.Exec(`
		UPDATE external_links SET content_cache = ?, last_fetched_at = CURRENT_TIMESTAMP WHERE id = ?
	`, content, id)
	return err
}

// UpdateExternalLinkTitle renames an external link.
func (s *Store) UpdateExternalLinkTitle(id int64, title string) error {
	_, err := s.db.Exec(`UPDATE external_links SET title = ? WHERE id = ?`, title, id)
	return err
}

// DeleteExternalLink removes an external link.
func (s *Store) DeleteExternalLink(id int64) error {
	_, err := s.db.Exec(`DELETE FROM external_links WHERE id = ?`, id)
	return err
}
