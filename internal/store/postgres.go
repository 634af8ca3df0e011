package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgres creates a PostgreSQL-backed store
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchemaPostgres(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchemaPostgres creates PostgreSQL-specific tables
func (s *Store) initSchemaPostgres() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		goal TEXT,
		final_plan TEXT,
		contributions INTEGER NOT NULL DEFAULT 0,
		conversations_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		thread_id TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_sessions (
		id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		session_json TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS capabilities (
		area TEXT PRIMARY KEY,
		score DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		area TEXT NOT NULL,
		topic TEXT NOT NULL,
		target_score DOUBLE PRECISION NOT NULL,
		priority INTEGER NOT NULL,
		status TEXT NOT NULL,
		sessions_json TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
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
