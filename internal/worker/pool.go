package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task computes one item of a batch.
type Task[T any] func(ctx context.Context) T

// Outcome is the value produced for one submitted task. Ran is false when
// the pool's context ended before a worker picked the task up.
type Outcome[T any] struct {
	Value T
	Ran   bool
}

type slot[T any] struct {
	index int
	task  Task[T]
}

// Pool runs tasks on a fixed number of workers and reports their values in
// submission order.
type Pool[T any] struct {
	workers int
	queue   chan slot[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// gate serializes closing the queue against in-flight Submit calls.
	gate   sync.RWMutex
	closed bool
	next   atomic.Int64

	mu     sync.Mutex
	values map[int]T
}

// NewPool creates a pool whose tasks run under a context derived from ctx.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[T]{
		workers: workers,
		queue:   make(chan slot[T], workers*2),
		ctx:     ctx,
		cancel:  cancel,
		values:  make(map[int]T),
	}
}

// Start launches the workers.
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool[T]) run() {
	defer p.wg.Done()
	for s := range p.queue {
		if p.ctx.Err() != nil {
			continue
		}
		v := s.task(p.ctx)

		p.mu.Lock()
		p.values[s.index] = v
		p.mu.Unlock()
	}
}

// Submit queues task and returns its position in the batch. It returns
// false once the pool is closed or its context is done.
func (p *Pool[T]) Submit(task Task[T]) (int, bool) {
	p.gate.RLock()
	defer p.gate.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return 0, false
	}
	index := int(p.next.Add(1) - 1)
	select {
	case p.queue <- slot[T]{index: index, task: task}:
		return index, true
	case <-p.ctx.Done():
		// The slot stays in the batch and is reported as not run.
		return index, false
	}
}

// Wait closes the pool, waits for queued tasks and returns one outcome per
// submitted task, indexed by submission order.
func (p *Pool[T]) Wait() []Outcome[T] {
	p.close()
	p.wg.Wait()
	defer p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Outcome[T], p.next.Load())
	for i, v := range p.values {
		out[i] = Outcome[T]{Value: v, Ran: true}
	}
	return out
}

// Shutdown cancels the pool's context. Running tasks see the cancellation
// and queued ones are skipped; Wait still returns their slots.
func (p *Pool[T]) Shutdown() {
	p.cancel()
}

func (p *Pool[T]) close() {
	p.gate.Lock()
	defer p.gate.Unlock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}
