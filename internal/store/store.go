// Package store provides relational persistence for VibeTree using SQLite,
// grounded on internal/memory.Store: an explicit ordered migration list
// applied at open time, plain database/sql with no ORM, and JSON-blob
// columns for nested node/edge graphs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the single persistence handle for a VibeTree gateway process.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) a SQLite database under dataPath
// and applies all migrations.
func NewStore(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "vibetree.db?_foreign_keys=on")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dataPath}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate applies every schema statement in order on every open. Each
// statement is a CREATE ... IF NOT EXISTS, so re-running them is safe; a
// "duplicate column" failure is also swallowed, matching memory.Store's
// migrate(), though no statement in the list adds a column.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS repos (
			id TEXT PRIMARY KEY,
			local_path TEXT NOT NULL,
			last_scanned_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS repo_pins (
			repo_id TEXT PRIMARY KEY,
			base_branch_override TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS planning_sessions (
			id TEXT PRIMARY KEY,
			repo_id TEXT NOT NULL,
			title TEXT NOT NULL,
			base_branch TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			nodes_json TEXT NOT NULL DEFAULT '[]',
			edges_json TEXT NOT NULL DEFAULT '[]',
			chat_session_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_planning_sessions_repo ON planning_sessions(repo_id)`,
		`CREATE TABLE IF NOT EXISTS tree_specs (
			repo_id TEXT PRIMARY KEY,
			base_branch TEXT,
			status TEXT NOT NULL DEFAULT 'draft',
			nodes_json TEXT NOT NULL DEFAULT '[]',
			edges_json TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS branch_naming_rules (
			repo_id TEXT PRIMARY KEY,
			pattern TEXT NOT NULL,
			description TEXT,
			examples_json TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS terminal_sessions (
			id TEXT PRIMARY KEY,
			repo_id TEXT NOT NULL,
			worktree_path TEXT NOT NULL UNIQUE,
			pid INTEGER DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'stopped',
			last_output TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_terminal_sessions_repo ON terminal_sessions(repo_id)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			worktree_path TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			repo_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_branch ON chat_sessions(repo_id, branch_name)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (chat_session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(chat_session_id)`,
		`CREATE TABLE IF NOT EXISTS branch_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			link_type TEXT NOT NULL,
			url TEXT NOT NULL,
			number INTEGER DEFAULT 0,
			title TEXT,
			status TEXT,
			checks_json TEXT,
			labels_json TEXT NOT NULL DEFAULT '[]',
			reviewers_json TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_branch_links_branch ON branch_links(repo_id, branch_name)`,
		`CREATE TABLE IF NOT EXISTS external_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			planning_session_id TEXT NOT NULL,
			url TEXT NOT NULL,
			link_type TEXT NOT NULL,
			title TEXT,
			content_cache TEXT,
			last_fetched_at DATETIME,
			FOREIGN KEY (planning_session_id) REFERENCES planning_sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_external_links_session ON external_links(planning_session_id)`,
		`CREATE TABLE IF NOT EXISTS task_instructions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_instructions_branch ON task_instructions(repo_id, branch_name)`,
		`CREATE TABLE IF NOT EXISTS instructions_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo_id TEXT NOT NULL,
			branch_name TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instructions_log_branch ON instructions_log(repo_id, branch_name)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
