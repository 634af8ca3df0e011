package trainer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/internal/platform"
	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/internal/store"
	"github.com/praxishq/praxis/pkg/models"
)

// TaskTypeExecuteSession runs a started training session to completion
const TaskTypeExecuteSession queue.TaskType = "execute_training_session"

// PayloadKeySessionID is the task payload key carrying the session id
const PayloadKeySessionID = "session_id"

// DefaultMaxRecentSessions bounds how many terminal sessions stay
// readable in memory
const DefaultMaxRecentSessions = 50

// SessionStore is the slice of the persistence layer the manager uses.
// All methods are called only from the manager's worker goroutine.
type SessionStore interface {
	CreateThread(subject, goal string) (string, error)
	SaveConversation(conv *models.Conversation) (string, error)
	AssociateConversation(threadID, conversationID string) error
	UpdateThread(threadID string, update store.ThreadUpdate) error
	SaveSession(session *models.TrainingSession) error
	GetSession(sessionID string) (*models.TrainingSession, error)
	ListSessions(limit int) ([]*models.TrainingSession, error)
}

// Options configures a Manager
type Options struct {
	Strategy          ScoringStrategy // defaults to LongestResponse
	MaxRecentSessions int             // Terminal sessions kept in memory; <= 0 uses the default
	MaxInsights       int             // Insights quoted in a recommendation summary; <= 0 uses the default
	Status            queue.StatusSink
	Metrics           *metrics.Metrics
	Queue             queue.Options
}

// Manager orchestrates training sessions: it validates and creates
// sessions synchronously, then executes them on its own background
// worker. Session state is mutated only on that worker goroutine;
// callers read copies.
type Manager struct {
	registry    *platform.Registry
	store       SessionStore
	worker      *queue.Worker
	strategy    ScoringStrategy
	status      queue.StatusSink
	metrics     *metrics.Metrics
	rng         *rand.Rand
	maxRecent   int
	maxInsights int

	mu     sync.RWMutex
	active map[string]*models.TrainingSession
	recent []string // terminal session ids, oldest first
}

// NewManager wires a manager with its own worker queue
func NewManager(registry *platform.Registry, sessions SessionStore, opts Options) (*Manager, error) {
	if registry == nil {
		return nil, fmt.Errorf("platform registry is required")
	}
	if opts.Strategy == nil {
		opts.Strategy = LongestResponse{}
	}
	if opts.MaxRecentSessions <= 0 {
		opts.MaxRecentSessions = DefaultMaxRecentSessions
	}
	if opts.MaxInsights <= 0 {
		opts.MaxInsights = DefaultMaxInsights
	}

	qopts := opts.Queue
	qopts.Status = opts.Status
	qopts.Metrics = opts.Metrics

	m := &Manager{
		registry:    registry,
		store:       sessions,
		strategy:    opts.Strategy,
		status:      opts.Status,
		metrics:     opts.Metrics,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		maxRecent:   opts.MaxRecentSessions,
		maxInsights: opts.MaxInsights,
		active:      make(map[string]*models.TrainingSession),
	}
	m.worker = queue.NewWorker("trainer", qopts)
	if err := m.worker.Handle(TaskTypeExecuteSession, m.handleExecuteSession); err != nil {
		return nil, err
	}
	return m, nil
}

// Start launches the session worker
func (m *Manager) Start() error {
	return m.worker.Start()
}

// Stop drains the worker
func (m *Manager) Stop() {
	m.worker.Stop()
}

// Worker exposes the underlying queue for status reporting
func (m *Manager) Worker() *queue.Worker {
	return m.worker
}

// StartSession validates the request, creates a session in started
// state, and schedules its execution. It returns before any platform is
// contacted; unknown topics, modes, or platforms are rejected here and
// never enter the queue.
func (m *Manager) StartSession(topic string, mode models.TrainingMode, platforms []string, goalID string) (*models.TrainingSession, error) {
	if !KnownTopic(topic) {
		return nil, fmt.Errorf("unknown training topic: %s", topic)
	}
	if mode != models.ModeAllTrain && mode != models.ModeSingleTeaches {
		return nil, fmt.Errorf("unknown training mode: %s", mode)
	}
	if len(platforms) == 0 {
		platforms = m.registry.List()
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("no platforms available")
	}
	for _, p := range platforms {
		if !m.registry.Has(p) {
			return nil, fmt.Errorf("unknown platform: %s", p)
		}
	}

	session := &models.TrainingSession{
		ID:        uuid.New().String(),
		Topic:     topic,
		Mode:      mode,
		Platforms: platforms,
		GoalID:    goalID,
		Status:    models.SessionStatusStarted,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.active[session.ID] = session
	m.mu.Unlock()

	if err := m.worker.Schedule(TaskTypeExecuteSession, map[string]interface{}{
		PayloadKeySessionID: session.ID,
	}); err != nil {
		m.mu.Lock()
		delete(m.active, session.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to schedule session: %w", err)
	}

	m.report(models.StatusLevelInfo, fmt.Sprintf("training session %s started (topic=%s mode=%s)", session.ID, topic, mode))
	log.Printf("Training session %s started: topic=%s mode=%s platforms=%v", session.ID, topic, mode, platforms)
	return m.copySession(session), nil
}

// GetSessionStatus returns a snapshot of a session, checking active
// sessions first and falling back to the persisted record. Returns
// (nil, nil) when the session is unknown. Idempotent.
func (m *Manager) GetSessionStatus(sessionID string) (*models.TrainingSession, error) {
	m.mu.RLock()
	session, ok := m.active[sessionID]
	if ok {
		cp := m.copySessionLocked(session)
		m.mu.RUnlock()
		return cp, nil
	}
	m.mu.RUnlock()

	if m.store == nil {
		return nil, nil
	}
	return m.store.GetSession(sessionID)
}

// ListSessions returns in-memory sessions followed by persisted ones,
// skipping persisted records still held in the recent window
func (m *Manager) ListSessions(limit int) ([]*models.TrainingSession, error) {
	m.mu.RLock()
	sessions := make([]*models.TrainingSession, 0, len(m.active))
	seen := make(map[string]bool, len(m.active))
	for _, s := range m.active {
		sessions = append(sessions, m.copySessionLocked(s))
		seen[s.ID] = true
	}
	m.mu.RUnlock()

	if m.store != nil {
		persisted, err := m.store.ListSessions(limit)
		if err != nil {
			return nil, err
		}
		for _, s := range persisted {
			if !seen[s.ID] {
				sessions = append(sessions, s)
			}
		}
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (m *Manager) handleExecuteSession(ctx context.Context, task *queue.Task) error {
	sessionID, _ := task.Payload[PayloadKeySessionID].(string)
	if sessionID == "" {
		return fmt.Errorf("task payload missing %s", PayloadKeySessionID)
	}

	m.mu.RLock()
	session, ok := m.active[sessionID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	m.executeSession(ctx, session)
	return nil
}

// executeSession drives a session across its platforms. Adapter errors
// are recorded per platform and tolerated; the session only fails when
// no platform produced any response.
func (m *Manager) executeSession(ctx context.Context, session *models.TrainingSession) {
	start := time.Now()

	if m.store != nil {
		threadID, err := m.store.CreateThread(
			fmt.Sprintf("Training: %s", session.Topic),
			fmt.Sprintf("improve %s via %s", session.Topic, session.Mode),
		)
		if err != nil {
			log.Printf("Session %s: failed to create thread: %v", session.ID, err)
		} else {
			m.withSession(session, func(s *models.TrainingSession) {
				s.ThreadID = threadID
			})
		}
	}

	type exchange struct {
		platform string
		prompt   string
	}
	var plan []exchange

	prompts := Prompts(session.Topic)
	switch session.Mode {
	case models.ModeAllTrain:
		// one prompt fanned out to every platform
		prompt := prompts[m.rng.Intn(len(prompts))]
		for _, p := range session.Platforms {
			plan = append(plan, exchange{platform: p, prompt: prompt})
		}
	case models.ModeSingleTeaches:
		// every prompt sent to a single randomly chosen platform
		teacher := session.Platforms[m.rng.Intn(len(session.Platforms))]
		for _, prompt := range prompts {
			plan = append(plan, exchange{platform: teacher, prompt: prompt})
		}
	}

	for _, ex := range plan {
		if ctx.Err() != nil {
			break
		}
		callStart := time.Now()
		resp, err := m.registry.Send(ctx, ex.platform, ex.prompt)
		if m.metrics != nil {
			m.metrics.PlatformLatency.WithLabelValues(ex.platform).Observe(time.Since(callStart).Seconds())
		}
		if err != nil {
			if m.metrics != nil {
				m.metrics.PlatformRequests.WithLabelValues(ex.platform, "error").Inc()
			}
			m.report(models.StatusLevelWarning, fmt.Sprintf("session %s: platform %s failed: %v", session.ID, ex.platform, err))
			log.Printf("Session %s: platform %s failed: %v", session.ID, ex.platform, err)
			m.withSession(session, func(s *models.TrainingSession) {
				s.Errors = append(s.Errors, models.PlatformError{
					Platform:  ex.platform,
					Error:     err.Error(),
					Timestamp: time.Now(),
				})
			})
			continue
		}

		if m.metrics != nil {
			m.metrics.PlatformRequests.WithLabelValues(ex.platform, "ok").Inc()
		}
		convID := m.persistConversation(session, ex.platform, ex.prompt, resp.Text)
		m.withSession(session, func(s *models.TrainingSession) {
			s.Results = append(s.Results, models.PlatformResult{
				Platform:       ex.platform,
				Prompt:         ex.prompt,
				Response:       resp.Text,
				ConversationID: convID,
				Timestamp:      time.Now(),
			})
		})
	}

	m.finalizeSession(session, start)
}

// persistConversation saves the exchange and links it to the session
// thread. Persistence errors are logged, never fatal to the session.
func (m *Manager) persistConversation(session *models.TrainingSession, platformName, prompt, response string) string {
	if m.store == nil {
		return ""
	}

	convID, err := m.store.SaveConversation(&models.Conversation{
		ID:        uuid.New().String(),
		Platform:  platformName,
		Prompt:    prompt,
		Response:  response,
		ThreadID:  session.ThreadID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Session %s: failed to save conversation: %v", session.ID, err)
		return ""
	}
	if session.ThreadID != "" {
		if err := m.store.AssociateConversation(session.ThreadID, convID); err != nil {
			log.Printf("Session %s: failed to associate conversation: %v", session.ID, err)
		}
	}
	return convID
}

func (m *Manager) finalizeSession(session *models.TrainingSession, start time.Time) {
	now := time.Now()

	var status models.SessionStatus
	m.withSession(session, func(s *models.TrainingSession) {
		if len(s.Results) == 0 {
			s.Status = models.SessionStatusFailed
			msgs := make([]string, 0, len(s.Errors))
			for _, e := range s.Errors {
				msgs = append(msgs, fmt.Sprintf("%s: %s", e.Platform, e.Error))
			}
			s.Errors = append(s.Errors, models.PlatformError{
				Platform:  "all",
				Error:     fmt.Sprintf("no platform produced a response (%s)", strings.Join(msgs, "; ")),
				Timestamp: now,
			})
		} else {
			s.Status = models.SessionStatusCompleted
			s.Recommendation = Synthesize(m.strategy, s.Results, m.maxInsights)
		}
		s.CompletedAt = &now
		status = s.Status
	})

	if m.metrics != nil {
		m.metrics.SessionsTotal.WithLabelValues(string(session.Mode), string(status)).Inc()
		m.metrics.SessionDuration.WithLabelValues(string(session.Mode)).Observe(now.Sub(start).Seconds())
	}
	m.report(models.StatusLevelInfo, fmt.Sprintf("training session %s %s", session.ID, status))
	log.Printf("Training session %s finished: status=%s results=%d errors=%d",
		session.ID, status, len(session.Results), len(session.Errors))

	if m.store != nil {
		if session.ThreadID != "" && session.Recommendation != nil {
			plan := session.Recommendation.Summary
			if err := m.store.UpdateThread(session.ThreadID, store.ThreadUpdate{FinalPlan: &plan}); err != nil {
				log.Printf("Session %s: failed to update thread plan: %v", session.ID, err)
			}
		}
		if err := m.store.SaveSession(session); err != nil {
			log.Printf("Session %s: failed to persist: %v", session.ID, err)
		}
	}

	// Terminal sessions stay readable in memory until the recent window
	// fills; the oldest are evicted first.
	m.mu.Lock()
	m.recent = append(m.recent, session.ID)
	for len(m.recent) > m.maxRecent {
		delete(m.active, m.recent[0])
		m.recent = m.recent[1:]
	}
	m.mu.Unlock()
}

// withSession mutates a session under the lock so concurrent readers
// always see a consistent snapshot
func (m *Manager) withSession(session *models.TrainingSession, fn func(*models.TrainingSession)) {
	m.mu.Lock()
	fn(session)
	m.mu.Unlock()
}

func (m *Manager) copySession(s *models.TrainingSession) *models.TrainingSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copySessionLocked(s)
}

func (m *Manager) copySessionLocked(s *models.TrainingSession) *models.TrainingSession {
	cp := *s
	cp.Platforms = append([]string(nil), s.Platforms...)
	cp.Results = append([]models.PlatformResult(nil), s.Results...)
	cp.Errors = append([]models.PlatformError(nil), s.Errors...)
	if s.Recommendation != nil {
		rec := *s.Recommendation
		rec.Insights = append([]models.Insight(nil), s.Recommendation.Insights...)
		cp.Recommendation = &rec
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func (m *Manager) report(level models.StatusLevel, message string) {
	if m.status != nil {
		m.status.Update(level, "trainer", message)
	}
}
