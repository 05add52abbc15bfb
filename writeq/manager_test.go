package writeq

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memFile is a synchronous io.WriteCloser recording everything written to
// it. gate, when set, blocks each write until the channel is closed.
type memFile struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	closed   bool
	writes   int
	gate     chan struct{}
	writeErr error
	closeErr error
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes++
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *memFile) contents() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.String()
}

func (f *memFile) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func openerFor(f *memFile) OpenFunc {
	return func() (io.WriteCloser, error) { return f, nil }
}

func TestManager_WriteOrderPreserved(t *testing.T) {
	m := NewManager(WithWorkers(8))
	file := &memFile{}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)

	// Enqueue many writes back to back, well before any completes.
	var want bytes.Buffer
	for i := 0; i < 200; i++ {
		chunk := []byte(fmt.Sprintf("%04d;", i))
		want.Write(chunk)
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	require.NoError(t, m.Join("a.txt"))
	require.Equal(t, want.String(), file.contents())
	require.True(t, file.isClosed())
}

func TestManager_WriteCopiesBuffer(t *testing.T) {
	m := NewManager()
	file := &memFile{}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)

	buf := []byte("first")
	_, err = w.Write(buf)
	require.NoError(t, err)
	copy(buf, "XXXXX") // caller reuses its buffer

	require.NoError(t, w.Close())
	require.NoError(t, m.Join("a.txt"))
	require.Equal(t, "first", file.contents())
}

func TestManager_DistinctPathsProgressIndependently(t *testing.T) {
	m := NewManager(WithWorkers(4))

	gate := make(chan struct{})
	blocked := &memFile{gate: gate}
	free := &memFile{}

	wa, err := m.Open("a.txt", openerFor(blocked))
	require.NoError(t, err)
	wb, err := m.Open("b.txt", openerFor(free))
	require.NoError(t, err)

	_, err = wa.Write([]byte("stuck"))
	require.NoError(t, err)
	_, err = wb.Write([]byte("fast"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	// Path b completes while path a is still blocked.
	require.NoError(t, m.Join("b.txt"))
	require.Equal(t, "fast", free.contents())
	require.True(t, free.isClosed())

	close(gate)
	require.NoError(t, wa.Close())
	require.NoError(t, m.Join("a.txt"))
	require.Equal(t, "stuck", blocked.contents())
}

func TestManager_JoinDrainsQueuedJobs(t *testing.T) {
	m := NewManager(WithWorkers(2))
	file := &memFile{}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)

	const jobs = 50
	for _i := 0; _i < jobs; _i++ {
		_, err := w.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, m.Join("a.txt"))

	file.mu.Lock()
	writes := file.writes
	file.mu.Unlock()
	require.Equal(t, jobs, writes)

	// The path is forgotten: a fresh Open gets a fresh dispatcher.
	fresh := &memFile{}
	w2, err := m.Open("a.txt", openerFor(fresh))
	require.NoError(t, err)
	_, err = w2.Write([]byte("again"))
	require.NoError(t, err)
	require.NoError(t, m.Join("a.txt"))
	require.Equal(t, "again", fresh.contents())
}

func TestManager_JoinUnregisteredPath(t *testing.T) {
	m := NewManager()
	err := m.Join("never-opened.txt")
	require.ErrorIs(t, err, ErrPathNotRegistered)
}

func TestManager_JobErrorSurfacesAtJoin(t *testing.T) {
	m := NewManager()
	boom := errors.New("disk full")
	file := &memFile{writeErr: boom}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)

	// The failing write itself reports success; the error is deferred.
	_, err = w.Write([]byte("doomed"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = m.Join("a.txt")
	require.ErrorIs(t, err, boom)

	// The close job still ran after the failed write.
	require.True(t, file.isClosed())
}

func TestManager_CloseErrorSurfacesAtJoin(t *testing.T) {
	m := NewManager()
	boom := errors.New("close failed")
	file := &memFile{closeErr: boom}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.ErrorIs(t, m.Join("a.txt"), boom)
}

func TestManager_JoinAllClosesManager(t *testing.T) {
	m := NewManager()
	fileA := &memFile{}
	fileB := &memFile{}

	wa, err := m.Open("a.txt", openerFor(fileA))
	require.NoError(t, err)
	wb, err := m.Open("b.txt", openerFor(fileB))
	require.NoError(t, err)

	_, err = wa.Write([]byte("a"))
	require.NoError(t, err)
	_, err = wb.Write([]byte("b"))
	require.NoError(t, err)

	require.NoError(t, m.JoinAll())
	require.Equal(t, "a", fileA.contents())
	require.Equal(t, "b", fileB.contents())

	// Further enqueues on previously-open paths fail.
	_, err = wa.Write([]byte("late"))
	require.ErrorIs(t, err, ErrManagerClosed)
	require.ErrorIs(t, wa.Close(), ErrManagerClosed)

	// So do fresh opens.
	_, err = m.Open("c.txt", openerFor(&memFile{}))
	require.ErrorIs(t, err, ErrManagerClosed)
}

func TestManager_ConcurrentOpenSamePath(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.JoinAll() }()

	file := &memFile{}

	var wg sync.WaitGroup
	writers := make([]*Writer, 10)
	for i := range writers {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := m.Open("shared.txt", openerFor(file))
			require.NoError(t, err)
			writers[i] = w
		}()
	}
	wg.Wait()

	// All writers share one queue/dispatcher.
	for _, w := range writers {
		_, err := w.Write([]byte("w"))
		require.NoError(t, err)
	}
	require.NoError(t, m.Join("shared.txt"))
	require.Equal(t, "wwwwwwwwww", file.contents())
}

func TestManager_OpenFailurePropagates(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.JoinAll() }()

	boom := errors.New("no such directory")
	_, err := m.Open("a.txt", func() (io.WriteCloser, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	// A failed open registers nothing.
	require.ErrorIs(t, m.Join("a.txt"), ErrPathNotRegistered)
}

func TestManager_WritesBeforeCloseAllApplied(t *testing.T) {
	m := NewManager(WithWorkers(1))
	file := &memFile{}

	w, err := m.Open("a.txt", openerFor(file))
	require.NoError(t, err)

	for _i := 0; _i < 5; _i++ {
		_, err := w.Write([]byte("p"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, m.Join("a.txt"))

	// Close ran strictly after every queued write.
	require.True(t, file.isClosed())
	require.Equal(t, "ppppp", file.contents())
}

func TestJobQueue_FIFOAndClose(t *testing.T) {
	q := newJobQueue()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, q.Push(func() error {
			order = append(order, i)
			return nil
		}))
	}
	q.Close()

	for {
		job, ok := q.Pop()
		if !ok {
			break
		}
		require.NoError(t, job())
	}
	require.Equal(t, []int{0, 1, 2}, order)

	require.False(t, q.Push(func() error { return nil }))
}

func TestJobQueue_PopBlocksUntilPush(t *testing.T) {
	q := newJobQueue()

	popped := make(chan struct{})
	go func() {
		job, ok := q.Pop()
		require.True(t, ok)
		require.NoError(t, job())
		close(popped)
	}()

	time.Sleep(10 * time.Millisecond)
	require.True(t, q.Push(func() error { return nil }))

	select {
	case <-popped:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}
