package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPools(n int) map[string]Pool {
	return map[string]Pool{
		"shared_queue":  NewSharedQueuePool(n),
		"work_stealing": NewWorkStealingPool(n),
	}
}

func TestPoolRunsAllJobs(t *testing.T) {
	for name, p := range testPools(4) {
		p := p
		t.Run(name, func(t *testing.T) {
			var n int64
			var wg sync.WaitGroup
			for i := 0; i < 500; i++ {
				wg.Add(1)
				p.Spawn(func() {
					defer wg.Done()
					atomic.AddInt64(&n, 1)
				})
			}
			wg.Wait()
			p.Close()
			require.EqualValues(t, 500, atomic.LoadInt64(&n))
		})
	}
}

func TestPoolSurvivesPanickingJob(t *testing.T) {
	for name, p := range testPools(2) {
		p := p
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			wg.Add(1)
			p.Spawn(func() {
				defer wg.Done()
				panic("boom")
			})
			wg.Wait()

			// The pool must still accept and run work after a panic.
			done := make(chan struct{})
			p.Spawn(func() { close(done) })

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("pool did not recover from panicking job")
			}
			p.Close()
		})
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const n = 3
	for name, p := range testPools(n) {
		p := p
		t.Run(name, func(t *testing.T) {
			var cur, max int64
			var wg sync.WaitGroup
			for i := 0; i < 30; i++ {
				wg.Add(1)
				p.Spawn(func() {
					defer wg.Done()
					c := atomic.AddInt64(&cur, 1)
					for {
						m := atomic.LoadInt64(&max)
						if c <= m || atomic.CompareAndSwapInt64(&max, m, c) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt64(&cur, -1)
				})
			}
			wg.Wait()
			p.Close()
			require.LessOrEqual(t, int(atomic.LoadInt64(&max)), n)
		})
	}
}
