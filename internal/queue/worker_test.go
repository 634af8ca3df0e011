package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestWorker(t *testing.T, opts Options) *Worker {
	t.Helper()
	if opts.IdleWait == 0 {
		opts.IdleWait = 10 * time.Millisecond
	}
	if opts.FailureBackoff == 0 {
		opts.FailureBackoff = time.Millisecond
	}
	w := NewWorker("test", opts)
	t.Cleanup(w.Stop)
	return w
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEnqueueRequiresRunning(t *testing.T) {
	w := newTestWorker(t, Options{})
	if err := w.Schedule("noop", nil); err == nil {
		t.Error("enqueue before Start should fail")
	}
}

func TestHandlerRejectsReservedAndDuplicate(t *testing.T) {
	w := newTestWorker(t, Options{})
	noop := func(ctx context.Context, task *Task) error { return nil }

	if err := w.Handle(TaskTypeShutdown, noop); err == nil {
		t.Error("shutdown type should be reserved")
	}
	if err := w.Handle("dup", noop); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := w.Handle("dup", noop); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestTasksProcessedInPriorityOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	block := make(chan struct{})

	w := newTestWorker(t, Options{})
	w.Handle("blocker", func(ctx context.Context, task *Task) error {
		<-block
		return nil
	})
	w.Handle("record", func(ctx context.Context, task *Task) error {
		mu.Lock()
		order = append(order, task.Payload["name"].(string))
		mu.Unlock()
		return nil
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// occupy the worker so the queue accumulates
	if err := w.Schedule("blocker", nil); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	enqueue := func(name string, priority int) {
		if err := w.Enqueue(&Task{
			Type:     "record",
			Priority: priority,
			Payload:  map[string]interface{}{"name": name},
		}); err != nil {
			t.Fatalf("enqueue %s failed: %v", name, err)
		}
	}
	enqueue("low-first", 5)
	enqueue("low-second", 5)
	enqueue("urgent", 1)
	close(block)

	waitUntil(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, "tasks never drained")

	mu.Lock()
	defer mu.Unlock()
	want := []string{"urgent", "low-first", "low-second"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestScheduledTaskWaits(t *testing.T) {
	var processed atomic.Int32

	w := newTestWorker(t, Options{})
	w.Handle("later", func(ctx context.Context, task *Task) error {
		processed.Add(1)
		return nil
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := w.Enqueue(&Task{
		Type:        "later",
		ScheduledAt: time.Now().Add(50 * time.Millisecond),
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if processed.Load() != 0 {
		t.Error("scheduled task ran before its time")
	}

	waitUntil(t, 2*time.Second, func() bool {
		return processed.Load() == 1
	}, "scheduled task never ran")
}

func TestHandlerErrorDoesNotStopWorker(t *testing.T) {
	var ran atomic.Int32

	w := newTestWorker(t, Options{})
	w.Handle("bad", func(ctx context.Context, task *Task) error {
		return errors.New("boom")
	})
	w.Handle("good", func(ctx context.Context, task *Task) error {
		ran.Add(1)
		return nil
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	w.Schedule("bad", nil)
	w.Schedule("good", nil)

	waitUntil(t, 2*time.Second, func() bool {
		return ran.Load() == 1
	}, "worker did not survive a handler error")
	if !w.IsRunning() {
		t.Error("worker should still be running")
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	var ran atomic.Int32

	w := newTestWorker(t, Options{})
	w.Handle("panic", func(ctx context.Context, task *Task) error {
		panic("catastrophe")
	})
	w.Handle("after", func(ctx context.Context, task *Task) error {
		ran.Add(1)
		return nil
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	w.Schedule("panic", nil)
	w.Schedule("after", nil)

	waitUntil(t, 2*time.Second, func() bool {
		return ran.Load() == 1
	}, "worker did not survive a handler panic")
}

type countingContinuation struct {
	calls atomic.Int32
}

func (c *countingContinuation) Continue(ctx context.Context) bool {
	c.calls.Add(1)
	return false
}

func TestContinuationPolledWhenIdle(t *testing.T) {
	cont := &countingContinuation{}
	w := newTestWorker(t, Options{
		IdleWait:     5 * time.Millisecond,
		Continuation: cont,
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		return cont.calls.Load() >= 2
	}, "continuation source never polled on idle")
}

func TestStopDrainsQueuedWork(t *testing.T) {
	var ran atomic.Int32

	w := NewWorker("drain", Options{
		IdleWait:        10 * time.Millisecond,
		FailureBackoff:  time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	w.Handle("work", func(ctx context.Context, task *Task) error {
		ran.Add(1)
		return nil
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		w.Schedule("work", nil)
	}
	w.Stop()

	// tasks enqueued before Stop at equal priority run before the sentinel
	if ran.Load() != 5 {
		t.Errorf("expected 5 tasks drained before shutdown, got %d", ran.Load())
	}
	if w.IsRunning() {
		t.Error("worker should be stopped")
	}
}

func TestStatusSnapshot(t *testing.T) {
	w := newTestWorker(t, Options{})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	st := w.GetStatus()
	if st.Name != "test" {
		t.Errorf("expected worker name in status, got %q", st.Name)
	}
	if !st.IsRunning {
		t.Error("status should report running")
	}
	if st.QueueDepth != 0 {
		t.Errorf("expected empty queue, got depth %d", st.QueueDepth)
	}
}
