package pool

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/semaphore"
)

// WorkStealingPool bounds concurrency to n in-flight jobs using a weighted
// semaphore and otherwise delegates scheduling to the Go runtime's own
// work-stealing goroutine scheduler, which plays the role an external
// work-stealing thread pool plays elsewhere. Each job runs in its own
// goroutine with its own panic recovery, so one job's panic can never take
// down another's goroutine or shrink available concurrency.
type WorkStealingPool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger log.Logger

	mu     sync.Mutex
	closed bool
}

var _ Pool = (*WorkStealingPool)(nil)

// NewWorkStealingPool bounds concurrent job execution to n goroutines.
func NewWorkStealingPool(n int, opts ...Option) *WorkStealingPool {
	if n < 1 {
		n = 1
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &WorkStealingPool{
		sem:    semaphore.NewWeighted(int64(n)),
		logger: cfg.logger,
	}
}

// Spawn acquires a concurrency slot (blocking the caller if all n are in
// use) and runs job on a new goroutine.
func (p *WorkStealingPool) Spawn(job Job) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		p.wg.Done()
		return
	}

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				level.Error(p.logger).Log("msg", "pool job panicked", "panic", r)
			}
		}()
		job()
	}()
}

// Close stops accepting jobs and waits for all in-flight jobs to finish.
func (p *WorkStealingPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
