package selftrain

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxishq/praxis/internal/capability"
	"github.com/praxishq/praxis/internal/feedback"
	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/pkg/models"
)

// Task types for the self-training cycle. The cycle is
// capability_assessment -> gap_analysis -> goal_planning ->
// schedule_training -> monitor_session -> apply_training_results, then
// back to assessment.
const (
	TaskTypeAssessment       queue.TaskType = "capability_assessment"
	TaskTypeGapAnalysis      queue.TaskType = "gap_analysis"
	TaskTypeGoalPlanning     queue.TaskType = "goal_planning"
	TaskTypeScheduleTraining queue.TaskType = "schedule_training"
	TaskTypeMonitorSession   queue.TaskType = "monitor_session"
	TaskTypeApplyResults     queue.TaskType = "apply_training_results"
)

// Task payload keys
const (
	PayloadKeyGoalID    = "goal_id"
	PayloadKeySessionID = "session_id"
	PayloadKeyDeadline  = "deadline"
	PayloadKeySuccess   = "success"
)

// outcomeWindow bounds the per-area history used to derive observed
// scores during assessment
const outcomeWindow = 10

// SessionRunner is the slice of the training orchestrator the loop
// drives
type SessionRunner interface {
	StartSession(topic string, mode models.TrainingMode, platforms []string, goalID string) (*models.TrainingSession, error)
	GetSessionStatus(sessionID string) (*models.TrainingSession, error)
}

// GoalStore persists goals between runs
type GoalStore interface {
	UpsertGoal(goal *models.Goal) error
	ListGoals() ([]*models.Goal, error)
}

// Options configures a System
type Options struct {
	PollInterval    time.Duration // Session monitor poll cadence; also paces recurring assessments
	SessionTimeout  time.Duration // Ceiling on how long a monitored session may run
	GapThreshold    float64       // Score below which an area counts as a gap; 0 keeps the model default
	RequireApproval bool          // Gate goal promotion on human feedback
	Metrics         *metrics.Metrics
	Queue           queue.Options
}

// System runs the self-training loop on its own background worker. All
// goal and capability mutation happens on that goroutine; readers get
// copies. When RequireApproval is set, newly planned goals wait for a
// human feedback response before any training is scheduled.
type System struct {
	model    *capability.Model
	runner   SessionRunner
	goals    GoalStore
	feedback *feedback.Channel
	worker   *queue.Worker
	metrics  *metrics.Metrics

	pollInterval    time.Duration
	sessionTimeout  time.Duration
	requireApproval bool

	mu             sync.RWMutex
	goalsByID      map[string]*models.Goal
	lastGaps       []models.Gap
	outcomes       map[string][]bool // per-area recent session outcomes
	monitoring     map[string]string // goal id -> session id currently monitored
	lastAssessment time.Time
	awaitingHuman  bool
}

// NewSystem wires the loop. Call Start to begin the first assessment.
func NewSystem(model *capability.Model, runner SessionRunner, goals GoalStore, fb *feedback.Channel, opts Options) (*System, error) {
	if model == nil {
		return nil, fmt.Errorf("capability model is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("session runner is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 10 * time.Minute
	}
	if opts.GapThreshold > 0 {
		model.SetGapThreshold(opts.GapThreshold)
	}

	s := &System{
		model:           model,
		runner:          runner,
		goals:           goals,
		feedback:        fb,
		metrics:         opts.Metrics,
		pollInterval:    opts.PollInterval,
		sessionTimeout:  opts.SessionTimeout,
		requireApproval: opts.RequireApproval,
		goalsByID:       make(map[string]*models.Goal),
		outcomes:        make(map[string][]bool),
		monitoring:      make(map[string]string),
	}

	qopts := opts.Queue
	qopts.Metrics = opts.Metrics
	if fb != nil {
		qopts.Status = fb
	}
	qopts.Continuation = s
	s.worker = queue.NewWorker("selftrain", qopts)

	handlers := map[queue.TaskType]queue.HandlerFunc{
		TaskTypeAssessment:               s.handleAssessment,
		TaskTypeGapAnalysis:              s.handleGapAnalysis,
		TaskTypeGoalPlanning:             s.handleGoalPlanning,
		TaskTypeScheduleTraining:         s.handleScheduleTraining,
		TaskTypeMonitorSession:           s.handleMonitorSession,
		TaskTypeApplyResults:             s.handleApplyResults,
		feedback.TaskTypeProcessFeedback: s.handleProcessFeedback,
	}
	for taskType, handler := range handlers {
		if err := s.worker.Handle(taskType, handler); err != nil {
			return nil, err
		}
	}

	if fb != nil {
		fb.SetScheduler(s.worker)
	}
	return s, nil
}

// Start loads persisted goals, launches the worker, and schedules the
// bootstrap assessment.
func (s *System) Start() error {
	if s.goals != nil {
		persisted, err := s.goals.ListGoals()
		if err != nil {
			return fmt.Errorf("failed to load goals: %w", err)
		}
		s.mu.Lock()
		for _, g := range persisted {
			s.goalsByID[g.ID] = g
		}
		s.mu.Unlock()
	}

	if err := s.worker.Start(); err != nil {
		return err
	}
	s.publishGoalMetrics()
	return s.worker.Schedule(TaskTypeAssessment, nil)
}

// Stop drains the worker
func (s *System) Stop() {
	s.worker.Stop()
}

// Worker exposes the underlying queue for status reporting
func (s *System) Worker() *queue.Worker {
	return s.worker
}

// Goals returns copies of all goals, priority then age ordered
func (s *System) Goals() []*models.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Goal, 0, len(s.goalsByID))
	for _, g := range s.goalsByID {
		cp := *g
		cp.TrainingSessions = append([]string(nil), g.TrainingSessions...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Gaps returns the gaps computed by the most recent analysis
func (s *System) Gaps() []models.Gap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Gap(nil), s.lastGaps...)
}

// Continue keeps the loop alive while the queue is idle: once per poll
// interval it schedules a fresh assessment, unless a human feedback
// response is still outstanding.
func (s *System) Continue(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.feedback != nil && s.feedback.HasPending() {
		return false
	}

	s.mu.Lock()
	due := time.Since(s.lastAssessment) >= s.pollInterval
	if due {
		s.lastAssessment = time.Now()
	}
	s.mu.Unlock()

	if !due {
		return false
	}
	if err := s.worker.Schedule(TaskTypeAssessment, nil); err != nil {
		return false
	}
	return true
}

// handleAssessment blends observed success rates into the capability
// model. Safe with no history; the first run persists the bootstrap.
func (s *System) handleAssessment(ctx context.Context, task *queue.Task) error {
	s.mu.Lock()
	observed := make(map[string]float64, len(s.outcomes))
	for area, results := range s.outcomes {
		if len(results) == 0 {
			continue
		}
		successes := 0
		for _, ok := range results {
			if ok {
				successes++
			}
		}
		observed[area] = float64(successes) / float64(len(results))
	}
	s.lastAssessment = time.Now()
	s.mu.Unlock()

	if err := s.model.Assess(observed); err != nil {
		return err
	}
	log.Printf("Capability assessment complete: %d areas observed", len(observed))
	return s.worker.Schedule(TaskTypeGapAnalysis, nil)
}

func (s *System) handleGapAnalysis(ctx context.Context, task *queue.Task) error {
	gaps := s.model.AnalyzeGaps()

	s.mu.Lock()
	s.lastGaps = gaps
	s.mu.Unlock()

	for _, gap := range gaps {
		log.Printf("Capability gap: area=%s current=%.2f target=%.2f priority=%d",
			gap.Area, gap.CurrentScore, gap.TargetScore, gap.Priority)
	}
	if len(gaps) == 0 {
		s.report(models.StatusLevelInfo, "no capability gaps found")
		// No new gaps, but an idle in-progress goal may still need work.
		return s.promoteNext()
	}
	return s.worker.Schedule(TaskTypeGoalPlanning, nil)
}

// handleGoalPlanning converts gaps into goals (one per area, skipping
// areas that already have an open goal) and promotes the next goal.
// With approval gating on, promotion waits for a human response to the
// plan instead.
func (s *System) handleGoalPlanning(ctx context.Context, task *queue.Task) error {
	s.mu.Lock()
	open := make(map[string]bool)
	for _, g := range s.goalsByID {
		if g.Status != models.GoalStatusCompleted {
			open[g.Area] = true
		}
	}

	var created []*models.Goal
	now := time.Now()
	for _, gap := range s.lastGaps {
		if open[gap.Area] {
			continue
		}
		goal := &models.Goal{
			ID:          uuid.New().String(),
			Area:        gap.Area,
			Topic:       capability.TopicForArea(gap.Area),
			TargetScore: gap.TargetScore,
			Priority:    gap.Priority,
			Status:      models.GoalStatusPlanned,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.goalsByID[goal.ID] = goal
		created = append(created, goal)
	}
	needApproval := s.requireApproval && len(created) > 0 && !s.awaitingHuman
	if needApproval {
		s.awaitingHuman = true
	}
	s.mu.Unlock()

	for _, goal := range created {
		s.persistGoal(goal)
		log.Printf("Goal planned: area=%s topic=%s target=%.2f priority=%d",
			goal.Area, goal.Topic, goal.TargetScore, goal.Priority)
	}
	s.publishGoalMetrics()

	if needApproval && s.feedback != nil {
		areas := make([]string, 0, len(created))
		for _, g := range created {
			areas = append(areas, g.Area)
		}
		s.feedback.RequestFeedback(
			fmt.Sprintf("approve training plan for %d goal(s)", len(created)),
			fmt.Sprintf("areas: %v", areas),
		)
		return nil
	}
	return s.promoteNext()
}

// promoteNext schedules training for an idle in-progress goal, or
// promotes the highest-priority planned goal when nothing is in
// progress. Only one goal is pursued at a time.
func (s *System) promoteNext() error {
	s.mu.Lock()
	var inProgress *models.Goal
	var next *models.Goal
	for _, g := range s.goalsByID {
		switch g.Status {
		case models.GoalStatusInProgress:
			inProgress = g
		case models.GoalStatusPlanned:
			if next == nil || g.Priority < next.Priority ||
				(g.Priority == next.Priority && g.CreatedAt.Before(next.CreatedAt)) {
				next = g
			}
		}
	}
	if inProgress != nil {
		_, active := s.monitoring[inProgress.ID]
		goalID := inProgress.ID
		s.mu.Unlock()
		if active {
			return nil
		}
		return s.worker.Schedule(TaskTypeScheduleTraining, map[string]interface{}{
			PayloadKeyGoalID: goalID,
		})
	}
	if next == nil {
		s.mu.Unlock()
		return nil
	}
	next.Status = models.GoalStatusInProgress
	next.UpdatedAt = time.Now()
	promoted := next
	s.mu.Unlock()

	s.persistGoal(promoted)
	s.publishGoalMetrics()
	s.report(models.StatusLevelInfo, fmt.Sprintf("goal %s promoted: area=%s topic=%s", promoted.ID, promoted.Area, promoted.Topic))
	log.Printf("Goal %s promoted to in_progress: topic=%s", promoted.ID, promoted.Topic)

	return s.worker.Schedule(TaskTypeScheduleTraining, map[string]interface{}{
		PayloadKeyGoalID: promoted.ID,
	})
}

func (s *System) handleScheduleTraining(ctx context.Context, task *queue.Task) error {
	goalID, _ := task.Payload[PayloadKeyGoalID].(string)
	goal := s.goal(goalID)
	if goal == nil {
		return fmt.Errorf("goal not found: %s", goalID)
	}
	if goal.Status != models.GoalStatusInProgress {
		log.Printf("Goal %s is %s, skipping training", goal.ID, goal.Status)
		return nil
	}
	s.mu.RLock()
	_, active := s.monitoring[goal.ID]
	s.mu.RUnlock()
	if active {
		return nil
	}

	session, err := s.runner.StartSession(goal.Topic, models.ModeAllTrain, nil, goal.ID)
	if err != nil {
		s.report(models.StatusLevelError, fmt.Sprintf("failed to start training for goal %s: %v", goal.ID, err))
		// Re-plan rather than crash: a fresh assessment re-derives gaps.
		return s.scheduleAssessmentAfter(s.pollInterval)
	}

	s.mu.Lock()
	if g, ok := s.goalsByID[goal.ID]; ok {
		g.TrainingSessions = append(g.TrainingSessions, session.ID)
		g.UpdatedAt = time.Now()
		goal = g
	}
	s.monitoring[goal.ID] = session.ID
	s.mu.Unlock()
	s.persistGoal(goal)

	log.Printf("Training session %s scheduled for goal %s", session.ID, goal.ID)
	return s.worker.Enqueue(&queue.Task{
		Type: TaskTypeMonitorSession,
		Payload: map[string]interface{}{
			PayloadKeyGoalID:    goal.ID,
			PayloadKeySessionID: session.ID,
			PayloadKeyDeadline:  time.Now().Add(s.sessionTimeout),
		},
		ScheduledAt: time.Now().Add(s.pollInterval),
	})
}

// handleMonitorSession polls a running session. Terminal sessions flow
// into apply_training_results; sessions past the deadline are treated
// as timed out, which is reported distinctly from a failed session but
// nudges the score the same way.
func (s *System) handleMonitorSession(ctx context.Context, task *queue.Task) error {
	goalID, _ := task.Payload[PayloadKeyGoalID].(string)
	sessionID, _ := task.Payload[PayloadKeySessionID].(string)
	deadline, _ := task.Payload[PayloadKeyDeadline].(time.Time)

	session, err := s.runner.GetSessionStatus(sessionID)
	if err != nil {
		return fmt.Errorf("failed to poll session %s: %w", sessionID, err)
	}
	if session == nil {
		return fmt.Errorf("monitored session %s disappeared", sessionID)
	}

	if session.Status.Terminal() {
		return s.worker.Schedule(TaskTypeApplyResults, map[string]interface{}{
			PayloadKeyGoalID:    goalID,
			PayloadKeySessionID: sessionID,
			PayloadKeySuccess:   session.Status == models.SessionStatusCompleted,
		})
	}

	if !deadline.IsZero() && time.Now().After(deadline) {
		s.report(models.StatusLevelError, fmt.Sprintf("training session %s timed out for goal %s", sessionID, goalID))
		log.Printf("Training session %s timed out (goal %s)", sessionID, goalID)
		return s.worker.Schedule(TaskTypeApplyResults, map[string]interface{}{
			PayloadKeyGoalID:    goalID,
			PayloadKeySessionID: sessionID,
			PayloadKeySuccess:   false,
		})
	}

	return s.worker.Enqueue(&queue.Task{
		Type:        TaskTypeMonitorSession,
		Payload:     task.Payload,
		ScheduledAt: time.Now().Add(s.pollInterval),
	})
}

// handleApplyResults maps the session's topic back to a capability
// area, nudges its score, and re-evaluates the goal. Failed or timed
// out sessions leave the goal in_progress and trigger a re-assessment.
func (s *System) handleApplyResults(ctx context.Context, task *queue.Task) error {
	goalID, _ := task.Payload[PayloadKeyGoalID].(string)
	sessionID, _ := task.Payload[PayloadKeySessionID].(string)
	success, _ := task.Payload[PayloadKeySuccess].(bool)

	session, err := s.runner.GetSessionStatus(sessionID)
	if err != nil || session == nil {
		return fmt.Errorf("failed to load session %s for result application: %v", sessionID, err)
	}

	area := capability.AreaForTopic(session.Topic)
	score, err := s.model.ApplyOutcome(area, success)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.monitoring, goalID)
	history := append(s.outcomes[area], success)
	if len(history) > outcomeWindow {
		history = history[len(history)-outcomeWindow:]
	}
	s.outcomes[area] = history
	s.mu.Unlock()

	goal := s.goal(goalID)
	if goal == nil {
		return s.scheduleAssessmentAfter(s.pollInterval)
	}

	if !success {
		// Goal stays in_progress; a fresh assessment re-derives gaps and
		// the loop re-plans from there.
		s.report(models.StatusLevelWarning, fmt.Sprintf("training for goal %s did not succeed, re-assessing", goal.ID))
		return s.scheduleAssessmentAfter(s.pollInterval)
	}

	if score >= goal.TargetScore {
		s.mu.Lock()
		if g, ok := s.goalsByID[goal.ID]; ok && g.Status == models.GoalStatusInProgress {
			g.Status = models.GoalStatusCompleted
			g.UpdatedAt = time.Now()
			goal = g
		}
		s.mu.Unlock()
		s.persistGoal(goal)
		s.publishGoalMetrics()
		s.report(models.StatusLevelInfo, fmt.Sprintf("goal %s completed: %s reached %.2f", goal.ID, area, score))
		log.Printf("Goal %s completed: area=%s score=%.2f target=%.2f", goal.ID, area, score, goal.TargetScore)
		return s.promoteNext()
	}

	// Progress made but target not reached: keep training the same goal.
	log.Printf("Goal %s progressing: area=%s score=%.2f target=%.2f", goal.ID, area, score, goal.TargetScore)
	return s.worker.Enqueue(&queue.Task{
		Type:        TaskTypeScheduleTraining,
		Payload:     map[string]interface{}{PayloadKeyGoalID: goal.ID},
		ScheduledAt: time.Now().Add(s.pollInterval),
	})
}

// handleProcessFeedback resumes the loop after a human answers. The
// response unblocks goal promotion.
func (s *System) handleProcessFeedback(ctx context.Context, task *queue.Task) error {
	feedbackID, _ := task.Payload[feedback.PayloadKeyFeedbackID].(string)

	if s.feedback != nil {
		if req := s.feedback.GetRequest(feedbackID); req != nil {
			log.Printf("Processing feedback %s: %s", feedbackID, req.Response)
		}
	}

	s.mu.Lock()
	s.awaitingHuman = false
	s.mu.Unlock()

	return s.promoteNext()
}

func (s *System) goal(goalID string) *models.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if g, ok := s.goalsByID[goalID]; ok {
		cp := *g
		cp.TrainingSessions = append([]string(nil), g.TrainingSessions...)
		return &cp
	}
	return nil
}

func (s *System) scheduleAssessmentAfter(delay time.Duration) error {
	return s.worker.Enqueue(&queue.Task{
		Type:        TaskTypeAssessment,
		ScheduledAt: time.Now().Add(delay),
	})
}

func (s *System) persistGoal(goal *models.Goal) {
	if s.goals == nil || goal == nil {
		return
	}
	if err := s.goals.UpsertGoal(goal); err != nil {
		log.Printf("Failed to persist goal %s: %v", goal.ID, err)
	}
}

func (s *System) publishGoalMetrics() {
	if s.metrics == nil {
		return
	}
	counts := map[models.GoalStatus]int{}
	s.mu.RLock()
	for _, g := range s.goalsByID {
		counts[g.Status]++
	}
	s.mu.RUnlock()
	for _, status := range []models.GoalStatus{models.GoalStatusPlanned, models.GoalStatusInProgress, models.GoalStatusCompleted} {
		s.metrics.GoalsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

func (s *System) report(level models.StatusLevel, message string) {
	if s.feedback != nil {
		s.feedback.Update(level, "selftrain", message)
	}
}
