package feedback

import (
	"testing"

	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/pkg/models"
)

type captureScheduler struct {
	types    []queue.TaskType
	payloads []map[string]interface{}
}

func (s *captureScheduler) Schedule(taskType queue.TaskType, payload map[string]interface{}) error {
	s.types = append(s.types, taskType)
	s.payloads = append(s.payloads, payload)
	return nil
}

func TestStatusWindowEviction(t *testing.T) {
	ch := NewChannel(3, nil)

	ch.Update(models.StatusLevelInfo, "test", "one")
	ch.Update(models.StatusLevelInfo, "test", "two")
	ch.Update(models.StatusLevelInfo, "test", "three")
	ch.Update(models.StatusLevelWarning, "test", "four")

	updates := ch.Recent(0)
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates after eviction, got %d", len(updates))
	}
	if updates[0].Message != "two" {
		t.Errorf("expected oldest surviving update 'two', got %q", updates[0].Message)
	}
	if updates[2].Message != "four" {
		t.Errorf("expected newest update 'four', got %q", updates[2].Message)
	}

	limited := ch.Recent(2)
	if len(limited) != 2 || limited[1].Message != "four" {
		t.Errorf("Recent(2) should return the newest two updates, got %v", limited)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	ch := NewChannel(10, nil)
	sched := &captureScheduler{}
	ch.SetScheduler(sched)

	id := ch.RequestFeedback("approve plan?", "goal-1")
	if id == "" {
		t.Fatal("expected a feedback id")
	}
	if !ch.HasPending() {
		t.Error("expected a pending request")
	}

	req := ch.GetRequest(id)
	if req == nil || req.Status != models.FeedbackStatusPending {
		t.Fatalf("expected pending request, got %+v", req)
	}

	if err := ch.ProvideFeedback(id, "yes, proceed"); err != nil {
		t.Fatalf("ProvideFeedback failed: %v", err)
	}
	if ch.HasPending() {
		t.Error("expected no pending requests after response")
	}

	req = ch.GetRequest(id)
	if req.Status != models.FeedbackStatusResponded || req.Response != "yes, proceed" {
		t.Errorf("unexpected request state: %+v", req)
	}
	if req.RespondedAt == nil {
		t.Error("expected RespondedAt to be set")
	}

	if len(sched.types) != 1 || sched.types[0] != TaskTypeProcessFeedback {
		t.Fatalf("expected one process_feedback task, got %v", sched.types)
	}
	if sched.payloads[0][PayloadKeyFeedbackID] != id {
		t.Errorf("payload should carry the feedback id")
	}
}

func TestProvideFeedbackErrors(t *testing.T) {
	ch := NewChannel(10, nil)
	ch.SetScheduler(&captureScheduler{})

	if err := ch.ProvideFeedback("missing", "x"); err == nil {
		t.Error("expected error for unknown feedback id")
	}

	id := ch.RequestFeedback("check", "")
	if err := ch.ProvideFeedback(id, "first"); err != nil {
		t.Fatalf("first response failed: %v", err)
	}
	if err := ch.ProvideFeedback(id, "second"); err == nil {
		t.Error("expected error on double response")
	}
}
