package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/praxishq/praxis/pkg/models"
)

// SaveSession persists a training session that has reached a terminal state
func (s *Store) SaveSession(session *models.TrainingSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if !session.Status.Terminal() {
		return fmt.Errorf("session %s is not terminal: %s", session.ID, session.Status)
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	query := `
		INSERT INTO training_sessions (id, topic, mode, status, session_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			session_json = excluded.session_json,
			completed_at = excluded.completed_at
	`
	_, err = s.db.Exec(rebind(query),
		session.ID,
		session.Topic,
		string(session.Mode),
		string(session.Status),
		string(sessionJSON),
		session.StartedAt,
		session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a persisted session by ID; returns (nil, nil) when
// not found
func (s *Store) GetSession(sessionID string) (*models.TrainingSession, error) {
	query := `SELECT session_json FROM training_sessions WHERE id = ?`

	var sessionJSON string
	err := s.db.QueryRow(rebind(query), sessionID).Scan(&sessionJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := &models.TrainingSession{}
	if err := json.Unmarshal([]byte(sessionJSON), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// ListSessions retrieves the most recent persisted sessions
func (s *Store) ListSessions(limit int) ([]*models.TrainingSession, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT session_json
		FROM training_sessions
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.TrainingSession
	for rows.Next() {
		var sessionJSON string
		if err := rows.Scan(&sessionJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session := &models.TrainingSession{}
		if err := json.Unmarshal([]byte(sessionJSON), session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
