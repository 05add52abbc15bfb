package writeq

import "sync"

// jobQueue is an unbounded FIFO of write jobs. Enqueueing never blocks;
// Pop blocks until a job or the close sentinel arrives. Closing the queue
// is the terminal sentinel: jobs already queued are still handed out, then
// Pop reports exhaustion.
type jobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []func() error
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends job to the queue. Returns false if the queue was closed.
func (q *jobQueue) Push(job func() error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, job)
	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest job, blocking while the queue is
// empty and open. ok is false once the queue is closed and drained.
func (q *jobQueue) Pop() (job func() error, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.jobs) == 0 {
		return nil, false
	}
	job = q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

// Close marks the queue terminal. Queued jobs remain poppable.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
