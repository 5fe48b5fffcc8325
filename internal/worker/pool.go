// Package worker provides the bounded background pool that decouples
// webhook latency from LLM round-trip latency. Turns are enqueued and the
// HTTP response returns immediately; a full queue is visible to the caller
// instead of growing an unbounded goroutine set.
package worker

import (
	"context"
	"sync"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

type Task func(ctx context.Context)

type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines draining a queue of queueSize slots.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	p := &Pool{tasks: make(chan Task, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task(context.Background())
	}
}

// TrySubmit enqueues a task without blocking. Reports false when the queue
// is full or the pool is stopped; the caller decides how to degrade.
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		observability.Logger().Warn("worker queue full, task dropped")
		return false
	}
}

// Stop rejects new tasks, drains the queue and waits for in-flight tasks.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
