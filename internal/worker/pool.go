package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by futures submitted after shutdown
var ErrPoolClosed = errors.New("worker pool closed")

// Pool runs submitted work on a fixed set of background goroutines so
// repository calls never execute on the caller's goroutine. Shutdown stops
// accepting work but lets everything already queued or in flight finish.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with n workers and the given queue capacity
func NewPool(n, queueSize int, logger *slog.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: logger,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Shutdown stops accepting new work and blocks until in-flight work completes
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool drained")
}

// submit enqueues a task, overflowing to a dedicated goroutine rather than
// blocking the caller when the queue is full
func (p *Pool) submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
	default:
		p.logger.Warn("worker queue full, running task out of band")
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			task()
		}()
	}
	return nil
}

// Future is the deferred result of a submitted task
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Done returns a channel closed when the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or the context is cancelled
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn on the pool and returns a future for its result
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	if err := p.submit(func() {
		f.resolve(fn())
	}); err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}

// SubmitErr schedules fn on the pool for work with no result value
func SubmitErr(p *Pool, fn func() error) *Future[struct{}] {
	return Submit(p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}
