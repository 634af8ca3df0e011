package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists conversation threads, completed training sessions,
// capability scores and goals. It is accessed only from the worker
// goroutines that own the corresponding state.
type Store struct {
	db *sql.DB
}

// New creates a SQLite-backed store and initializes the schema
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... which both SQLite and
// PostgreSQL accept.
func rebind(query string) string {
	n := 1
	var out strings.Builder
	for _, ch := range query {
		if ch == '?' {
			fmt.Fprintf(&out, "$%d", n)
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// initSchema creates the tables
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		goal TEXT,
		final_plan TEXT,
		contributions INTEGER NOT NULL DEFAULT 0,
		conversations_json TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		thread_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		session_json TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS capabilities (
		area TEXT PRIMARY KEY,
		score REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		area TEXT NOT NULL,
		topic TEXT NOT NULL,
		target_score REAL NOT NULL,
		priority INTEGER NOT NULL,
		status TEXT NOT NULL,
		sessions_json TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_thread_id ON conversations(thread_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON training_sessions(status);
	CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
