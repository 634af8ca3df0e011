package queue

import (
	"container/heap"
	"time"
)

// TaskType identifies the handler a task is dispatched to
type TaskType string

// TaskTypeShutdown is the reserved sentinel that makes the worker loop exit.
// It cannot be registered as a handler type.
const TaskTypeShutdown TaskType = "shutdown"

// DefaultPriority is assigned to tasks that do not specify one.
// Lower numbers run first.
const DefaultPriority = 5

// Task is one unit of orchestration work. Tasks are never mutated after
// creation; the queue exclusively owns a task between enqueue and dequeue.
type Task struct {
	ID          string                 `json:"id"`
	Type        TaskType               `json:"type"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Priority    int                    `json:"priority"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	EnqueuedAt  time.Time              `json:"enqueued_at"`

	seq uint64 // preserves FIFO order among equal (priority, scheduled_at)
}

// taskHeap orders tasks by (priority, scheduled_at, seq) ascending.
// The original design was FIFO-only with an informational priority field;
// the heap makes the priority field real while keeping FIFO among equals.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	if !h[i].ScheduledAt.Equal(h[j].ScheduledAt) {
		return h[i].ScheduledAt.Before(h[j].ScheduledAt)
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(*Task))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}

// peek returns the top task without removing it
func (h taskHeap) peek() *Task {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func (h *taskHeap) push(t *Task) { heap.Push(h, t) }

func (h *taskHeap) pop() *Task { return heap.Pop(h).(*Task) }
