package wal

import (
	"sync"

	"github.com/Kevin-Yang1/remixdb/internal/vfs"
)

// writeRing dispatches WAL writes and fsyncs asynchronously relative to the
// caller, the Go-idiomatic substitute for spec.md §4.1's io_uring/POSIX-AIO
// write ring: remixdb has no coroutine runtime to integrate with an async
// I/O ring, so a single background goroutine draining an ordered job queue
// plays the same role (one goroutine deep, since WAL writes to a single
// file must stay in submission order). Because the engine only ever calls
// Append/Flush while holding its global spinlock, submissions already
// arrive in the order they must be applied; the ring's job is purely to
// let the caller's fsync not block the hot write path. The compaction
// pipeline's worker pool (internal/sstable) is where nr_workers/
// co_per_worker fan out onto golang.org/x/sync/errgroup.
type writeRing struct {
	jobs   chan func() error
	done   chan struct{}
	mu     sync.Mutex
	err    error
	wg     sync.WaitGroup
}

func newWriteRing() *writeRing {
	r := &writeRing{jobs: make(chan func() error, 1024), done: make(chan struct{})}
	go r.run()
	return r
}

func (r *writeRing) run() {
	for job := range r.jobs {
		if err := job(); err != nil {
			r.mu.Lock()
			if r.err == nil {
				r.err = err
			}
			r.mu.Unlock()
		}
		r.wg.Done()
	}
	close(r.done)
}

func (r *writeRing) fatal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// submitWrite enqueues a write of data at off in f. Write-ring failures are
// treated as fatal per spec.md §4.1's failure semantics; the error is
// surfaced the next time the caller syncs or closes.
func (r *writeRing) submitWrite(f vfs.File, off int64, data []byte) error {
	if err := r.fatal(); err != nil {
		return err
	}
	r.wg.Add(1)
	r.jobs <- func() error {
		_, err := f.WriteAt(data, off)
		return err
	}
	return nil
}

// submitSync enqueues an fsync without waiting for it.
func (r *writeRing) submitSync(f vfs.File) {
	r.wg.Add(1)
	r.jobs <- func() error {
		return f.Sync()
	}
}

// syncWait enqueues an fsync and blocks until every job submitted so far
// (including this one) has completed.
func (r *writeRing) syncWait(f vfs.File) error {
	r.submitSync(f)
	r.wg.Wait()
	return r.fatal()
}

func (r *writeRing) close() {
	r.wg.Wait()
	close(r.jobs)
	<-r.done
}
