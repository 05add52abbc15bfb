// Package writeq provides ordered, non-blocking writes to arbitrary
// destinations.
//
// A Manager keeps one FIFO job queue and one dispatcher goroutine per
// destination path. Writer handles returned by Open enqueue their Write and
// Close calls as jobs instead of executing them inline; the path's
// dispatcher drains the queue, running each job on a shared bounded worker
// pool and waiting for it to finish before dequeuing the next. Writes to
// one path therefore apply in submission order, while writes to distinct
// paths proceed concurrently up to the pool's capacity.
//
// Because writes are asynchronous, job failures cannot surface at the call
// site. The manager captures the first failure per path and returns it from
// Join for that path (or JoinAll), which is the caller's synchronization
// point.
//
// The manager is constructed explicitly and owned by the composition root;
// there is no process-wide registry. Join(path) drains and forgets a single
// path; JoinAll drains every path and shuts the pool down, after which the
// manager is closed for good.
package writeq
