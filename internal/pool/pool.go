// Package pool provides a resizable bounded worker pool. Submitted
// functions run on their own goroutines, at most limit at a time; the
// rest wait in FIFO order. This generalizes the activeCount/maxParallel
// gate the download pipeline has always used for parallelism limits.
package pool

import "sync"

// Pool runs submitted functions with bounded concurrency.
type Pool struct {
	mu      sync.Mutex
	limit   int
	running int
	queue   []func()
}

// New creates a pool with the given concurrency limit. Limits below 1
// are clamped to 1.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{limit: limit}
}

// Submit schedules fn. It runs immediately if a slot is free, otherwise
// it queues until one frees up. Submit never blocks.
func (p *Pool) Submit(fn func()) {
	p.mu.Lock()
	p.queue = append(p.queue, fn)
	p.dispatchLocked()
	p.mu.Unlock()
}

// Resize changes the concurrency limit. Already-running work is
// unaffected; the new limit applies to subsequently scheduled work.
func (p *Pool) Resize(limit int) {
	if limit < 1 {
		limit = 1
	}
	p.mu.Lock()
	p.limit = limit
	p.dispatchLocked()
	p.mu.Unlock()
}

// Limit returns the current concurrency limit.
func (p *Pool) Limit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limit
}

// Running returns the number of currently executing functions.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// dispatchLocked starts queued work while slots are free. Callers must
// hold p.mu.
func (p *Pool) dispatchLocked() {
	for p.running < p.limit && len(p.queue) > 0 {
		fn := p.queue[0]
		p.queue = p.queue[1:]
		p.running++
		go func() {
			defer p.finish()
			fn()
		}()
	}
}

func (p *Pool) finish() {
	p.mu.Lock()
	p.running--
	p.dispatchLocked()
	p.mu.Unlock()
}
