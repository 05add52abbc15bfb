package writeq

import "io"

// Writer is the handle returned by Manager.Open. Its Write and Close calls
// enqueue exactly one job each, in call order, and return without waiting
// for the job to run. Errors from the deferred writes surface at
// Manager.Join / JoinAll, not here.
type Writer struct {
	path string
	file io.WriteCloser
	data *pathData
}

// Name returns the destination path.
func (w *Writer) Name() string { return w.path }

// Write enqueues a write of p to the underlying handle and returns
// immediately. p is copied, so the caller may reuse it. Write fails only
// when the path's queue has been closed by Join or JoinAll.
func (w *Writer) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	if !w.data.queue.Push(func() error {
		_, err := w.file.Write(buf)
		return err
	}) {
		return 0, ErrManagerClosed
	}
	return len(p), nil
}

// Close enqueues the close of the underlying handle behind every write
// already queued, guaranteeing the destination is not closed under pending
// writes. The close's own error, if any, surfaces at Join.
func (w *Writer) Close() error {
	if !w.data.queue.Push(func() error {
		return w.file.Close()
	}) {
		return ErrManagerClosed
	}
	return nil
}
