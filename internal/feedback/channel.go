package feedback

import (
	"container/ring"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/pkg/models"
)

// TaskTypeProcessFeedback is enqueued when a human answers a pending
// request, decoupling the synchronous answer from async resumption.
const TaskTypeProcessFeedback queue.TaskType = "process_feedback"

// PayloadKeyFeedbackID is the task payload key carrying the request id
const PayloadKeyFeedbackID = "feedback_id"

// DefaultMaxUpdates bounds the recent status window
const DefaultMaxUpdates = 200

// TaskScheduler is the narrow slice of the worker API the channel needs
type TaskScheduler interface {
	Schedule(taskType queue.TaskType, payload map[string]interface{}) error
}

// Channel is the status/feedback surface of the orchestration core: a
// bounded log of human-readable status updates plus a pending/responded
// feedback-request lifecycle used to gate multi-step execution.
type Channel struct {
	mu        sync.RWMutex
	buffer    *ring.Ring
	requests  map[string]*models.FeedbackRequest
	order     []string
	scheduler TaskScheduler
	metrics   *metrics.Metrics
}

// NewChannel creates a channel with a bounded status window
func NewChannel(maxUpdates int, m *metrics.Metrics) *Channel {
	if maxUpdates <= 0 {
		maxUpdates = DefaultMaxUpdates
	}
	return &Channel{
		buffer:   ring.New(maxUpdates),
		requests: make(map[string]*models.FeedbackRequest),
		metrics:  m,
	}
}

// SetScheduler wires the worker that receives process_feedback tasks.
// Must be called before ProvideFeedback is used.
func (c *Channel) SetScheduler(s TaskScheduler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduler = s
}

// Update appends a status entry, evicting the oldest beyond the window
func (c *Channel) Update(level models.StatusLevel, source, message string) {
	entry := models.StatusUpdate{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
	}

	c.mu.Lock()
	c.buffer.Value = entry
	c.buffer = c.buffer.Next()
	c.mu.Unlock()
}

// Recent returns up to n status updates, newest last
func (c *Channel) Recent(n int) []models.StatusUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var updates []models.StatusUpdate
	c.buffer.Do(func(v interface{}) {
		if v != nil {
			updates = append(updates, v.(models.StatusUpdate))
		}
	})
	if n > 0 && len(updates) > n {
		updates = updates[len(updates)-n:]
	}
	return updates
}

// RequestFeedback appends a pending request and returns its id. The
// orchestrator uses this to pause multi-step flows on human confirmation.
func (c *Channel) RequestFeedback(message, context string) string {
	req := &models.FeedbackRequest{
		ID:        uuid.New().String(),
		Message:   message,
		Context:   context,
		Status:    models.FeedbackStatusPending,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.requests[req.ID] = req
	c.order = append(c.order, req.ID)
	pending := c.pendingLocked()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.FeedbackPending.Set(float64(pending))
	}

	c.Update(models.StatusLevelWarning, "feedback", fmt.Sprintf("awaiting human feedback: %s", message))
	log.Printf("Feedback requested (%s): %s", req.ID, message)
	return req.ID
}

// ProvideFeedback resolves a pending request and enqueues a
// process_feedback task so orchestration resumes asynchronously
func (c *Channel) ProvideFeedback(feedbackID, response string) error {
	c.mu.Lock()
	req, exists := c.requests[feedbackID]
	if !exists {
		c.mu.Unlock()
		return fmt.Errorf("feedback request not found: %s", feedbackID)
	}
	if req.Status == models.FeedbackStatusResponded {
		c.mu.Unlock()
		return fmt.Errorf("feedback request %s already responded", feedbackID)
	}
	now := time.Now()
	req.Status = models.FeedbackStatusResponded
	req.Response = response
	req.RespondedAt = &now
	scheduler := c.scheduler
	pending := c.pendingLocked()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.FeedbackPending.Set(float64(pending))
	}
	c.Update(models.StatusLevelInfo, "feedback", fmt.Sprintf("feedback %s answered", feedbackID))

	if scheduler == nil {
		return fmt.Errorf("no task scheduler wired for feedback processing")
	}
	return scheduler.Schedule(TaskTypeProcessFeedback, map[string]interface{}{
		PayloadKeyFeedbackID: feedbackID,
	})
}

// GetRequest returns a copy of the request, or nil when unknown
func (c *Channel) GetRequest(feedbackID string) *models.FeedbackRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	req, exists := c.requests[feedbackID]
	if !exists {
		return nil
	}
	cp := *req
	return &cp
}

// ListRequests returns all requests in creation order
func (c *Channel) ListRequests() []*models.FeedbackRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.FeedbackRequest, 0, len(c.order))
	for _, id := range c.order {
		cp := *c.requests[id]
		out = append(out, &cp)
	}
	return out
}

// HasPending reports whether any request is unresolved. Continuation
// logic checks this before advancing multi-step execution.
func (c *Channel) HasPending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pendingLocked() > 0
}

// PendingCount returns the number of unresolved requests
func (c *Channel) PendingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pendingLocked()
}

func (c *Channel) pendingLocked() int {
	n := 0
	for _, req := range c.requests {
		if req.Status == models.FeedbackStatusPending {
			n++
		}
	}
	return n
}
