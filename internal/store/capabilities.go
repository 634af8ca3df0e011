package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/praxishq/praxis/pkg/models"
)

// SaveCapabilities upserts the full capability score map
func (s *Store) SaveCapabilities(scores map[string]float64) error {
	now := time.Now()
	query := `
		INSERT INTO capabilities (area, score, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(area) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`
	for area, score := range scores {
		if _, err := s.db.Exec(rebind(query), area, score, now); err != nil {
			return fmt.Errorf("failed to save capability %s: %w", area, err)
		}
	}
	return nil
}

// LoadCapabilities retrieves the persisted capability score map
func (s *Store) LoadCapabilities() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT area, score FROM capabilities`)
	if err != nil {
		return nil, fmt.Errorf("failed to load capabilities: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var area string
		var score float64
		if err := rows.Scan(&area, &score); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		scores[area] = score
	}
	return scores, nil
}

// UpsertGoal inserts or updates a goal
func (s *Store) UpsertGoal(goal *models.Goal) error {
	if goal == nil {
		return fmt.Errorf("goal cannot be nil")
	}
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now()
	}
	goal.UpdatedAt = time.Now()

	sessionsJSON, err := json.Marshal(goal.TrainingSessions)
	if err != nil {
		return fmt.Errorf("failed to marshal goal sessions: %w", err)
	}

	query := `
		INSERT INTO goals (id, area, topic, target_score, priority, status, sessions_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			target_score = excluded.target_score,
			priority = excluded.priority,
			sessions_json = excluded.sessions_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.Exec(rebind(query),
		goal.ID,
		goal.Area,
		goal.Topic,
		goal.TargetScore,
		goal.Priority,
		string(goal.Status),
		string(sessionsJSON),
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert goal: %w", err)
	}
	return nil
}

// GetGoal retrieves a goal by ID; returns (nil, nil) when not found
func (s *Store) GetGoal(goalID string) (*models.Goal, error) {
	query := `
		SELECT id, area, topic, target_score, priority, status, sessions_json, created_at, updated_at
		FROM goals
		WHERE id = ?
	`
	return s.scanGoal(s.db.QueryRow(rebind(query), goalID))
}

// ListGoals retrieves all goals ordered by priority then creation time
func (s *Store) ListGoals() ([]*models.Goal, error) {
	query := `
		SELECT id, area, topic, target_score, priority, status, sessions_json, created_at, updated_at
		FROM goals
		ORDER BY priority ASC, created_at ASC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		goal, err := scanGoalRow(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	return goals, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanGoal(row *sql.Row) (*models.Goal, error) {
	goal, err := scanGoalRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return goal, err
}

func scanGoalRow(row rowScanner) (*models.Goal, error) {
	goal := &models.Goal{}
	var status string
	var sessionsJSON sql.NullString

	err := row.Scan(
		&goal.ID,
		&goal.Area,
		&goal.Topic,
		&goal.TargetScore,
		&goal.Priority,
		&status,
		&sessionsJSON,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}

	goal.Status = models.GoalStatus(status)
	if sessionsJSON.Valid && sessionsJSON.String != "" {
		if err := json.Unmarshal([]byte(sessionsJSON.String), &goal.TrainingSessions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal goal sessions: %w", err)
		}
	}
	if goal.TrainingSessions == nil {
		goal.TrainingSessions = []string{}
	}
	return goal, nil
}
