package pool

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// SharedQueuePool is n workers blocked on one mutex+condvar-backed queue.
// Spawn never blocks: the queue grows without bound rather than applying
// in-process backpressure. A worker that panics while running a job
// recovers, logs the panic, and resumes polling so the pool always keeps
// exactly n live workers.
type SharedQueuePool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Job
	closed bool
	wg     sync.WaitGroup
	logger log.Logger
}

var _ Pool = (*SharedQueuePool)(nil)

// NewSharedQueuePool starts n workers polling a shared job queue.
func NewSharedQueuePool(n int, opts ...Option) *SharedQueuePool {
	if n < 1 {
		n = 1
	}
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	p := &SharedQueuePool{logger: cfg.logger}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *SharedQueuePool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runJob(job)
	}
}

func (p *SharedQueuePool) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			level.Error(p.logger).Log("msg", "pool job panicked", "panic", r)
		}
	}()
	job()
}

// Spawn enqueues job for execution by the next free worker.
func (p *SharedQueuePool) Spawn(job Job) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// Close stops accepting jobs, drains the queue, and joins all workers.
func (p *SharedQueuePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
