package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"fleet-erp-backend/internal/logger"
)

var (
	ErrQueueFull   = errors.New("dispatch queue is full")
	ErrQueueClosed = errors.New("dispatch queue is closed")
)

// Dispatcher runs side-effect tasks off the request path
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error) error
}

type task struct {
	name       string
	fn         func(ctx context.Context) error
	enqueuedAt time.Time
}

// Queue is a bounded in-process task queue served by a fixed worker pool.
// Failed tasks are retried with quadratic backoff up to maxRetries times.
type Queue struct {
	tasks      chan task
	workers    int
	maxRetries int
	backoff    func(attempt int) time.Duration

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	pending *atomic.Int64
	failed  *atomic.Int64
}

// NewQueue creates a queue; call Start before submitting
func NewQueue(workers, queueSize, maxRetries int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Queue{
		tasks:      make(chan task, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		ctx:        context.Background(),
		pending:    atomic.NewInt64(0),
		failed:     atomic.NewInt64(0),
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

// Start launches the workers. ctx cancellation aborts retry waits; queued
// tasks are still drained by Stop.
func (q *Queue) Start(ctx context.Context) {
	q.ctx = ctx
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	logger.Info("Dispatch queue started", "workers", q.workers, "capacity", cap(q.tasks), "maxRetries", q.maxRetries)
}

// Submit enqueues fn without blocking
func (q *Queue) Submit(name string, fn func(ctx context.Context) error) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task{name: name, fn: fn, enqueuedAt: time.Now()}:
		q.pending.Inc()
		return nil
	default:
		logger.Warn("Dispatch queue full, dropping task", "task", name)
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
}

// Stop refuses new tasks, drains the queue and waits for the workers
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
	logger.Info("Dispatch queue stopped", "failedTasks", q.failed.Load())
}

// Pending returns the number of queued or running tasks
func (q *Queue) Pending() int64 {
	return q.pending.Load()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger.Debug("Dispatch worker started", "worker", id)

	for t := range q.tasks {
		q.run(t)
		q.pending.Dec()
	}
	logger.Debug("Dispatch worker stopping", "worker", id)
}

func (q *Queue) run(t task) {
	for attempt := 0; ; attempt++ {
		err := runWithRecovery(q.ctx, t)
		if err == nil {
			logger.Debug("Dispatch task completed", "task", t.name, "attempt", attempt+1, "latency", time.Since(t.enqueuedAt))
			return
		}
		if attempt >= q.maxRetries {
			q.failed.Inc()
			logger.Error("Dispatch task failed, giving up", "task", t.name, "attempts", attempt+1, "error", err)
			return
		}

		wait := q.backoff(attempt + 1)
		logger.Warn("Dispatch task failed, retrying", "task", t.name, "attempt", attempt+1, "retryIn", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			q.failed.Inc()
			logger.Error("Dispatch task abandoned on shutdown", "task", t.name, "error", err)
			return
		case <-timer.C:
		}
	}
}

func runWithRecovery(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(ctx)
}
