package models

import "time"

// SessionStatus represents the lifecycle state of a training session
type SessionStatus string

const (
	SessionStatusStarted   SessionStatus = "started"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// Terminal reports whether the session has reached a final state.
// A terminal session is immutable and safe to persist.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// TrainingMode selects how prompts are fanned out across platforms
type TrainingMode string

const (
	// ModeAllTrain sends one prompt to every selected platform.
	ModeAllTrain TrainingMode = "all_ais_train"
	// ModeSingleTeaches sends every topic prompt to one randomly chosen platform.
	ModeSingleTeaches TrainingMode = "single_ai_teaches"
)

// PlatformError records a per-platform failure during a session.
// Adapter errors are tolerated; a session only fails when every platform errors.
type PlatformError struct {
	Platform  string    `json:"platform"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// PlatformResult records one successful prompt/response exchange
type PlatformResult struct {
	Platform       string    `json:"platform"`
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Insight is a single extracted observation from one platform's response
type Insight struct {
	Platform string `json:"platform"`
	Insight  string `json:"insight"`
}

// Recommendation is the synthesized output of a completed session.
// It is derived once and never mutated afterwards.
type Recommendation struct {
	BestPlatform string    `json:"best_platform"`
	Summary      string    `json:"summary"`
	Insights     []Insight `json:"insights"`
	Timestamp    time.Time `json:"timestamp"`
}

// TrainingSession represents one run of the orchestrator against a
// topic/mode/platform set. Mutated only by the worker goroutine running it;
// immutable once Status is terminal.
type TrainingSession struct {
	ID             string           `json:"id"`
	Topic          string           `json:"topic"`
	Mode           TrainingMode     `json:"mode"`
	Platforms      []string         `json:"platforms"`
	GoalID         string           `json:"goal_id,omitempty"`
	Status         SessionStatus    `json:"status"`
	Results        []PlatformResult `json:"results"`
	Errors         []PlatformError  `json:"errors"`
	Recommendation *Recommendation  `json:"final_recommendation,omitempty"`
	ThreadID       string           `json:"thread_id,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

// Gap is a capability area below threshold, computed transiently from the
// current capability snapshot. It is a view, not a source of truth.
type Gap struct {
	Area         string  `json:"area"`
	CurrentScore float64 `json:"current_score"`
	TargetScore  float64 `json:"target_score"`
	Priority     int     `json:"priority"` // 1 = urgent, 2 = normal
}

// GoalStatus represents the lifecycle state of a goal
type GoalStatus string

const (
	GoalStatusPlanned    GoalStatus = "planned"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
)

// Goal is a unit of work to close a specific capability gap via training
// sessions. It completes only when the area's score reaches TargetScore.
type Goal struct {
	ID               string     `json:"id"`
	Area             string     `json:"area"`
	Topic            string     `json:"topic"`
	TargetScore      float64    `json:"target_score"`
	Priority         int        `json:"priority"`
	Status           GoalStatus `json:"status"`
	TrainingSessions []string   `json:"training_sessions"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// FeedbackStatus represents the state of a feedback request
type FeedbackStatus string

const (
	FeedbackStatusPending   FeedbackStatus = "pending"
	FeedbackStatusResponded FeedbackStatus = "responded"
)

// FeedbackRequest is created when the orchestrator needs human input to
// proceed past a blocking point. It transitions to responded only via an
// explicit external call keyed by ID.
type FeedbackRequest struct {
	ID          string         `json:"id"`
	Message     string         `json:"message"`
	Context     string         `json:"context,omitempty"`
	Status      FeedbackStatus `json:"status"`
	Response    string         `json:"response,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}

// StatusLevel classifies a status update
type StatusLevel string

const (
	StatusLevelInfo    StatusLevel = "info"
	StatusLevelWarning StatusLevel = "warning"
	StatusLevelError   StatusLevel = "error"
)

// StatusUpdate is one entry in the bounded human-readable status log
type StatusUpdate struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     StatusLevel `json:"level"`
	Source    string      `json:"source"`
	Message   string      `json:"message"`
}

// Conversation is one persisted prompt/response pair
type Conversation struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	ThreadID  string    `json:"thread_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread groups related conversations under a subject and goal
type Thread struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Goal          string    `json:"goal,omitempty"`
	FinalPlan     string    `json:"final_plan,omitempty"`
	Contributions int       `json:"contributions"`
	Conversations []string  `json:"conversations"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
