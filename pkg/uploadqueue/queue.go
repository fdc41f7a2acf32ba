// Package uploadqueue runs uploads with bounded concurrency. Waiting items are
// pulled into the running set whenever a slot frees up.
package uploadqueue

import (
	"context"
	"sync"

	"ai-assistant-client/internal/pkg/logger"
)

const (
	DefaultMaxConcurrent = 5
	moduleName           = "UploadQueue"
)

// Task performs one upload. ctx is cancelled when the item is cancelled.
type Task func(ctx context.Context) error

// Result is passed to the completion callback of an item.
type Result struct {
	ID        string
	Err       error
	Cancelled bool
}

type item struct {
	id     string
	task   Task
	onDone func(Result)
}

type Queue struct {
	mu            sync.Mutex
	maxConcurrent int
	waiting       []item
	running       map[string]context.CancelFunc
	cancelled     map[string]bool
	wg            sync.WaitGroup
	logger        logger.ILogger
}

func New(maxConcurrent int, log logger.ILogger) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		running:       make(map[string]context.CancelFunc),
		cancelled:     make(map[string]bool),
		logger:        logger.OrNop(log),
	}
}

// Enqueue appends an item to the waiting list and starts it when a slot is
// free. onDone, if set, runs once the task returned; it never runs for items
// cancelled while still waiting.
func (q *Queue) Enqueue(id string, task Task, onDone func(Result)) {
	q.mu.Lock()
	q.waiting = append(q.waiting, item{id: id, task: task, onDone: onDone})
	q.mu.Unlock()
	q.continueQueue()
}

// Cancel removes a waiting item or aborts a running one. It reports whether
// the id was known.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.waiting {
		if it.id == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	if cancel, ok := q.running[id]; ok {
		q.cancelled[id] = true
		cancel()
		return true
	}
	return false
}

func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Wait blocks until every started task has returned and nothing is waiting.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) continueQueue() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.running) < q.maxConcurrent && len(q.waiting) > 0 {
		next := q.waiting[0]
		q.waiting = q.waiting[1:]

		ctx, cancel := context.WithCancel(context.Background())
		q.running[next.id] = cancel
		q.wg.Add(1)
		go q.run(ctx, next)
	}
}

func (q *Queue) run(ctx context.Context, it item) {
	defer q.wg.Done()

	err := it.task(ctx)

	q.mu.Lock()
	cancel := q.running[it.id]
	delete(q.running, it.id)
	cancelled := q.cancelled[it.id]
	delete(q.cancelled, it.id)
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if cancelled {
		q.logger.Debug(moduleName, "Upload cancelled", map[string]interface{}{"id": it.id})
	} else if err != nil {
		q.logger.Warn(moduleName, "Upload failed", map[string]interface{}{"id": it.id, "error": err.Error()})
	}
	if it.onDone != nil {
		it.onDone(Result{ID: it.id, Err: err, Cancelled: cancelled})
	}

	q.continueQueue()
}
