// Package tasks runs units of work on a bounded worker pool. The contract
// is deliberately small: submit a function and get a task ID, cancel a
// task that has not started yet, and query or wait for its result.
package tasks

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrCancelled is the result error of a task cancelled before it started.
var ErrCancelled = errors.New("task cancelled before start")

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Func is a unit of work.
type Func func() (interface{}, error)

// Task tracks one submitted unit of work.
type Task struct {
	id string
	fn Func

	mu        sync.Mutex
	status    Status
	result    interface{}
	err       error
	startedAt time.Time

	done chan struct{}
}

func (t *Task) run() {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return
	}
	t.status = StatusRunning
	t.startedAt = time.Now()
	t.mu.Unlock()

	result, err := t.fn()

	t.mu.Lock()
	t.result = result
	t.err = err
	t.status = StatusDone
	t.mu.Unlock()
	close(t.done)
}

// cancel marks a pending task cancelled. Running or finished tasks are
// left alone.
func (t *Task) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return false
	}
	t.status = StatusCancelled
	t.err = ErrCancelled
	close(t.done)
	return true
}

// Info is a point-in-time snapshot of a task.
type Info struct {
	ID      string
	Status  Status
	Running time.Duration // zero until the task starts
}

// Handler owns the worker pool and the task registry.
type Handler struct {
	workers int
	queue   chan *Task
	log     *slog.Logger

	mu      sync.Mutex
	tasks   map[string]*Task
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewHandler creates a Handler with the given number of workers
// (default 5). Workers start lazily on the first Submit.
func NewHandler(workers int, log *slog.Logger) *Handler {
	if workers <= 0 {
		workers = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		workers: workers,
		queue:   make(chan *Task, 128),
		log:     log,
		tasks:   make(map[string]*Task),
		quit:    make(chan struct{}),
	}
}

// Start launches the worker goroutines. Calling it more than once has no
// effect.
func (h *Handler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startLocked()
}

func (h *Handler) startLocked() {
	if h.started {
		return
	}
	h.started = true
	for i := 0; i < h.workers; i++ {
		h.wg.Add(1)
		go h.worker()
	}
	h.log.Debug("task handler started", "workers", h.workers)
}

// Stop shuts the pool down: queued tasks are cancelled, running tasks
// finish, and the workers exit.
func (h *Handler) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	close(h.quit)
	h.mu.Unlock()

	// Drain and cancel whatever never started.
	for {
		select {
		case t := <-h.queue:
			t.cancel()
		default:
			h.wg.Wait()
			h.mu.Lock()
			h.quit = make(chan struct{})
			h.mu.Unlock()
			h.log.Debug("task handler stopped")
			return
		}
	}
}

func (h *Handler) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			return
		case t := <-h.queue:
			t.run()
		}
	}
}

// Submit queues fn for execution and returns its task ID, starting the
// pool if needed.
func (h *Handler) Submit(fn Func) string {
	t := &Task{
		id:     uuid.New().String(),
		fn:     fn,
		status: StatusPending,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.startLocked()
	h.tasks[t.id] = t
	h.mu.Unlock()

	h.queue <- t
	h.log.Debug("task submitted", "task_id", t.id)
	return t.id
}

// Cancel cancels a task that has not started yet. It reports false when
// the task is unknown, already running, or already finished.
func (h *Handler) Cancel(id string) bool {
	h.mu.Lock()
	t, ok := h.tasks[id]
	h.mu.Unlock()
	if !ok {
		return false
	}
	cancelled := t.cancel()
	if cancelled {
		h.log.Debug("task cancelled", "task_id", id)
	}
	return cancelled
}

// Wait blocks until the task finishes or is cancelled and returns its
// result.
func (h *Handler) Wait(id string) (interface{}, error) {
	h.mu.Lock()
	t, ok := h.tasks[id]
	h.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown task " + id)
	}
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Status returns the task's current state.
func (h *Handler) Status(id string) (Status, bool) {
	h.mu.Lock()
	t, ok := h.tasks[id]
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, true
}

// Active returns snapshots of all tasks that are pending or running.
func (h *Handler) Active() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	var infos []Info
	for _, t := range h.tasks {
		t.mu.Lock()
		if t.status == StatusPending || t.status == StatusRunning {
			info := Info{ID: t.id, Status: t.status}
			if !t.startedAt.IsZero() {
				info.Running = time.Since(t.startedAt)
			}
			infos = append(infos, info)
		}
		t.mu.Unlock()
	}
	return infos
}
