package writeq

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// workerPool runs jobs on goroutines gated by a weighted semaphore, giving
// a shared, bounded execution capacity across all path dispatchers.
type workerPool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func newWorkerPool(workers int64) *workerPool {
	return &workerPool{sem: semaphore.NewWeighted(workers)}
}

// submit schedules job and returns a channel that receives its result.
// The call blocks only while the pool is at capacity, not for the job
// itself.
func (p *workerPool) submit(job func() error) <-chan error {
	done := make(chan error, 1)
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		done <- err
		return done
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		done <- job()
	}()
	return done
}

// shutdown waits for every submitted job to finish.
func (p *workerPool) shutdown() {
	p.wg.Wait()
}
