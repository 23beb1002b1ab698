// Package worker provides a worker pool for background tasks.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/svcgate/svcgate/src/internal/infrastructure/logger"
)

// Task represents a unit of work.
type Task func(context.Context)

// Pool manages a fixed set of workers draining a bounded task queue.
type Pool struct {
	workers    int
	tasks      chan Task
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	maxBacklog int
	shutdown   bool
	mu         sync.RWMutex
}

// NewPool creates a worker pool with the given worker count and
// backlog size. Non-positive values fall back to defaults.
func NewPool(workers int, maxBacklog int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if workers <= 0 {
		workers = 4
	}
	if maxBacklog <= 0 {
		maxBacklog = 100
	}

	p := &Pool{
		workers:    workers,
		tasks:      make(chan Task, maxBacklog),
		ctx:        ctx,
		cancel:     cancel,
		maxBacklog: maxBacklog,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// worker drains the queue until shutdown.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(id, task)
		}
	}
}

// run executes a single task with a timeout and panic recovery. A
// panicking task must not take the worker down with it.
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"worker_id": id,
				"panic":     r,
				"stack":     string(debug.Stack()),
			}).Error("Worker panic recovered")
		}
	}()

	taskCtx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
	defer cancel()
	task(taskCtx)
}

// Submit adds a task to the pool without blocking. Returns ErrPoolFull
// when the backlog is saturated. The read lock is held across the send
// so Shutdown cannot close the channel between the flag check and the
// send.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.shutdown {
		return fmt.Errorf("pool is shutdown")
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting tasks and waits for workers to drain the
// queue, up to the given timeout.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil
	}
	p.shutdown = true
	p.mu.Unlock()

	close(p.tasks)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		p.cancel()
		return ErrShutdownTimeout
	}
}

// Size returns the number of pending tasks.
func (p *Pool) Size() int {
	return len(p.tasks)
}

// Capacity returns the maximum backlog size.
func (p *Pool) Capacity() int {
	return p.maxBacklog
}

// Errors.
var (
	ErrPoolFull        = fmt.Errorf("worker pool is full")
	ErrShutdownTimeout = fmt.Errorf("shutdown timeout exceeded")
)
