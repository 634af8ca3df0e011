package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/pkg/models"
)

// HandlerFunc processes one dequeued task. A returned error is logged and
// the task is dropped; handlers re-enqueue internally when they want a retry.
type HandlerFunc func(ctx context.Context, task *Task) error

// ContinuationSource is polled when the queue is idle. It lets an
// orchestrator drive a multi-step session forward without needing one
// task per step. Continue reports whether any work was done.
type ContinuationSource interface {
	Continue(ctx context.Context) bool
}

// StatusSink receives human-readable status updates from the worker
type StatusSink interface {
	Update(level models.StatusLevel, source, message string)
	Recent(n int) []models.StatusUpdate
}

// Options configures a Worker
type Options struct {
	IdleWait        time.Duration // Bounded queue wait before the continuation check
	FailureBackoff  time.Duration // Sleep after a handler failure
	ShutdownTimeout time.Duration // Join timeout for Stop
	Continuation    ContinuationSource
	Status          StatusSink
	Metrics         *metrics.Metrics
}

// Worker is a single-consumer task queue with one dedicated background
// goroutine. All state owned by the registered handlers is mutated only
// from that goroutine; callers enqueue tasks or read published snapshots.
type Worker struct {
	name string

	mu       sync.Mutex
	tasks    taskHeap
	handlers map[TaskType]HandlerFunc
	seq      uint64
	running  bool
	current  string

	notify chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	idleWait        time.Duration
	failureBackoff  time.Duration
	shutdownTimeout time.Duration
	continuation    ContinuationSource
	status          StatusSink
	metrics         *metrics.Metrics
}

// Status is the externally visible snapshot of a worker
type Status struct {
	Name          string                `json:"name"`
	IsRunning     bool                  `json:"is_running"`
	CurrentTask   string                `json:"current_task,omitempty"`
	QueueDepth    int                   `json:"queue_depth"`
	RecentUpdates []models.StatusUpdate `json:"recent_updates,omitempty"`
}

// NewWorker creates a worker. Start must be called before tasks are
// processed.
func NewWorker(name string, opts Options) *Worker {
	if opts.IdleWait <= 0 {
		opts.IdleWait = 5 * time.Second
	}
	if opts.FailureBackoff <= 0 {
		opts.FailureBackoff = time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		name:            name,
		tasks:           taskHeap{},
		handlers:        make(map[TaskType]HandlerFunc),
		notify:          make(chan struct{}, 1),
		done:            make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
		idleWait:        opts.IdleWait,
		failureBackoff:  opts.FailureBackoff,
		shutdownTimeout: opts.ShutdownTimeout,
		continuation:    opts.Continuation,
		status:          opts.Status,
		metrics:         opts.Metrics,
	}
}

// Handle registers the handler for a task type. Must be called before Start.
func (w *Worker) Handle(taskType TaskType, handler HandlerFunc) error {
	if taskType == TaskTypeShutdown {
		return fmt.Errorf("task type %q is reserved", TaskTypeShutdown)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.handlers[taskType]; exists {
		return fmt.Errorf("handler already registered for task type %q", taskType)
	}
	w.handlers[taskType] = handler
	return nil
}

// Enqueue adds a task to the queue and wakes the worker if it is idle.
// ScheduledAt defaults to now and Priority to DefaultPriority when unset.
func (w *Worker) Enqueue(task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.Type == "" {
		return fmt.Errorf("task type cannot be empty")
	}

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker %s is not running", w.name)
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Priority == 0 {
		task.Priority = DefaultPriority
	}
	if task.ScheduledAt.IsZero() {
		task.ScheduledAt = time.Now()
	}
	task.EnqueuedAt = time.Now()
	w.seq++
	task.seq = w.seq
	w.tasks.push(task)
	depth := w.tasks.Len()
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.TasksEnqueued.WithLabelValues(w.name, string(task.Type)).Inc()
		w.metrics.QueueDepth.WithLabelValues(w.name).Set(float64(depth))
	}

	// Wake the worker if it is blocked on the queue
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

// Schedule is a convenience wrapper that builds and enqueues a task
func (w *Worker) Schedule(taskType TaskType, payload map[string]interface{}) error {
	return w.Enqueue(&Task{Type: taskType, Payload: payload})
}

// Start launches the background worker goroutine
func (w *Worker) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker %s is already running", w.name)
	}
	w.running = true
	w.mu.Unlock()

	go w.run()

	log.Printf("Worker %s started", w.name)
	return nil
}

// Stop enqueues the shutdown sentinel and joins the worker with a timeout.
// Shutdown is best effort: if the current task hangs past the timeout the
// worker is marked not-running and abandoned.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.seq++
	w.tasks.push(&Task{
		ID:          uuid.New().String(),
		Type:        TaskTypeShutdown,
		Priority:    DefaultPriority,
		ScheduledAt: time.Now(),
		EnqueuedAt:  time.Now(),
		seq:         w.seq,
	})
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}

	select {
	case <-w.done:
	case <-time.After(w.shutdownTimeout):
		log.Printf("Worker %s did not stop within %s, abandoning", w.name, w.shutdownTimeout)
		w.cancel()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}
}

// IsRunning reports whether the worker loop is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// QueueDepth returns the number of waiting tasks
func (w *Worker) QueueDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tasks.Len()
}

// GetStatus returns a snapshot of the worker state. Safe to poll.
func (w *Worker) GetStatus() Status {
	w.mu.Lock()
	st := Status{
		Name:        w.name,
		IsRunning:   w.running,
		CurrentTask: w.current,
		QueueDepth:  w.tasks.Len(),
	}
	w.mu.Unlock()

	if w.status != nil {
		st.RecentUpdates = w.status.Recent(20)
	}
	return st
}

// run is the worker loop. It blocks on the queue with a bounded wait; on
// idle timeout it polls the continuation source so multi-step sessions
// advance without dedicated tasks. Handler failures never corrupt the
// queue: the task is dropped, the failure logged, and the loop resumes
// after a brief backoff.
func (w *Worker) run() {
	defer close(w.done)

	for {
		task := w.next()
		if task == nil {
			if w.ctx.Err() != nil {
				w.finish("context cancelled")
				return
			}
			if w.continuation != nil {
				w.continuation.Continue(w.ctx)
			}
			continue
		}

		if task.Type == TaskTypeShutdown {
			w.finish("shutdown requested")
			return
		}

		w.process(task)
	}
}

func (w *Worker) finish(reason string) {
	w.mu.Lock()
	w.running = false
	w.current = ""
	w.mu.Unlock()
	w.update(models.StatusLevelInfo, fmt.Sprintf("worker stopping: %s", reason))
	log.Printf("Worker %s stopped: %s", w.name, reason)
}

// next blocks until a task is ready, the idle wait elapses (returns nil),
// or the context is cancelled (returns nil).
func (w *Worker) next() *Task {
	for {
		w.mu.Lock()
		wait := w.idleWait
		var task *Task
		if top := w.tasks.peek(); top != nil {
			now := time.Now()
			if !top.ScheduledAt.After(now) {
				task = w.tasks.pop()
				w.current = string(task.Type)
			} else if until := top.ScheduledAt.Sub(now); until < wait {
				wait = until
			}
		}
		depth := w.tasks.Len()
		w.mu.Unlock()

		if task != nil {
			if w.metrics != nil {
				w.metrics.QueueDepth.WithLabelValues(w.name).Set(float64(depth))
			}
			return task
		}

		timer := time.NewTimer(wait)
		select {
		case <-w.ctx.Done():
			timer.Stop()
			return nil
		case <-w.notify:
			timer.Stop()
			// Re-check the queue
		case <-timer.C:
			return nil
		}
	}
}

// process dispatches one task to its handler with panic recovery
func (w *Worker) process(task *Task) {
	w.mu.Lock()
	handler, exists := w.handlers[task.Type]
	w.mu.Unlock()

	if !exists {
		w.update(models.StatusLevelWarning, fmt.Sprintf("no handler for task type %q, dropping", task.Type))
		log.Printf("Worker %s: no handler for task type %q", w.name, task.Type)
		if w.metrics != nil {
			w.metrics.TasksProcessed.WithLabelValues(w.name, string(task.Type), "unhandled").Inc()
		}
		return
	}

	start := time.Now()
	err := w.safeCall(handler, task)

	w.mu.Lock()
	w.current = ""
	w.mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
		w.update(models.StatusLevelError, fmt.Sprintf("task %s (%s) failed: %v", task.ID, task.Type, err))
		log.Printf("Worker %s: task %s (%s) failed: %v", w.name, task.ID, task.Type, err)
	}
	if w.metrics != nil {
		w.metrics.TasksProcessed.WithLabelValues(w.name, string(task.Type), result).Inc()
		w.metrics.TaskDuration.WithLabelValues(w.name, string(task.Type)).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		// The queue itself is never corrupted by a task failure; back off
		// briefly and resume.
		select {
		case <-w.ctx.Done():
		case <-time.After(w.failureBackoff):
		}
	}
}

func (w *Worker) safeCall(handler HandlerFunc, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return handler(w.ctx, task)
}

func (w *Worker) update(level models.StatusLevel, message string) {
	if w.status != nil {
		w.status.Update(level, w.name, message)
	}
}
