package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxishq/praxis/pkg/models"
)

// CreateThread creates a new conversation thread and returns its ID
func (s *Store) CreateThread(subject, goal string) (string, error) {
	id := uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO threads (id, subject, goal, final_plan, contributions, conversations_json, created_at, updated_at)
		VALUES (?, ?, ?, '', 0, '[]', ?, ?)
	`
	if _, err := s.db.Exec(rebind(query), id, subject, goal, now, now); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return id, nil
}

// SaveConversation persists a prompt/response pair and returns its ID
func (s *Store) SaveConversation(conv *models.Conversation) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("conversation cannot be nil")
	}
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO conversations (id, platform, prompt, response, thread_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(rebind(query),
		conv.ID,
		conv.Platform,
		conv.Prompt,
		conv.Response,
		conv.ThreadID,
		conv.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}
	return conv.ID, nil
}

// AssociateConversation links a conversation to a thread and bumps the
// thread's contribution count
func (s *Store) AssociateConversation(threadID, conversationID string) error {
	thread, err := s.GetThread(threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return fmt.Errorf("thread not found: %s", threadID)
	}

	thread.Conversations = append(thread.Conversations, conversationID)
	thread.Contributions = len(thread.Conversations)
	thread.UpdatedAt = time.Now()

	convJSON, err := json.Marshal(thread.Conversations)
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	query := `
		UPDATE threads
		SET conversations_json = ?, contributions = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := s.db.Exec(rebind(query), string(convJSON), thread.Contributions, thread.UpdatedAt, threadID); err != nil {
		return fmt.Errorf("failed to associate conversation: %w", err)
	}

	updConv := `UPDATE conversations SET thread_id = ? WHERE id = ?`
	if _, err := s.db.Exec(rebind(updConv), threadID, conversationID); err != nil {
		return fmt.Errorf("failed to link conversation: %w", err)
	}

	return nil
}

// ThreadUpdate carries the mutable fields of a thread
type ThreadUpdate struct {
	FinalPlan     *string
	Contributions *int
}

// UpdateThread applies a partial update to a thread
func (s *Store) UpdateThread(threadID string, update ThreadUpdate) error {
	thread, err := s.GetThread(threadID)
	if err != nil {
		return err
	}
	if thread == nil {
		return fmt.Errorf("thread not found: %s", threadID)
	}

	if update.FinalPlan != nil {
		thread.FinalPlan = *update.FinalPlan
	}
	if update.Contributions != nil {
		thread.Contributions = *update.Contributions
	}
	thread.UpdatedAt = time.Now()

	query := `
		UPDATE threads
		SET final_plan = ?, contributions = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(rebind(query), thread.FinalPlan, thread.Contributions, thread.UpdatedAt, threadID)
	if err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("thread not found: %s", threadID)
	}
	return nil
}

// GetThread retrieves a thread by ID; returns (nil, nil) when not found
func (s *Store) GetThread(threadID string) (*models.Thread, error) {
	query := `
		SELECT id, subject, goal, final_plan, contributions, conversations_json, created_at, updated_at
		FROM threads
		WHERE id = ?
	`

	thread := &models.Thread{}
	var convJSON sql.NullString
	err := s.db.QueryRow(rebind(query), threadID).Scan(
		&thread.ID,
		&thread.Subject,
		&thread.Goal,
		&thread.FinalPlan,
		&thread.Contributions,
		&convJSON,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	if convJSON.Valid && convJSON.String != "" {
		if err := json.Unmarshal([]byte(convJSON.String), &thread.Conversations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversations: %w", err)
		}
	}
	if thread.Conversations == nil {
		thread.Conversations = []string{}
	}
	return thread, nil
}

// GetThreads retrieves the most recently updated threads
func (s *Store) GetThreads(limit int) ([]*models.Thread, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, subject, goal, final_plan, contributions, conversations_json, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		thread := &models.Thread{}
		var convJSON sql.NullString
		err := rows.Scan(
			&thread.ID,
			&thread.Subject,
			&thread.Goal,
			&thread.FinalPlan,
			&thread.Contributions,
			&convJSON,
			&thread.CreatedAt,
			&thread.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		if convJSON.Valid && convJSON.String != "" {
			if err := json.Unmarshal([]byte(convJSON.String), &thread.Conversations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal conversations: %w", err)
			}
		}
		if thread.Conversations == nil {
			thread.Conversations = []string{}
		}
		threads = append(threads, thread)
	}
	return threads, nil
}
