// Package engine implements the coordinating core of remixdb: the global
// spinlock, the WMT/IMT view ring, the WAL, and the compaction pipeline
// that ties them to the sstable version chain. It is the Go counterpart of
// struct xdb in original_source/xdb.c, restructured around the teacher's
// idioms (explicit error returns, a qsbr.Domain instead of a hand-rolled
// epoch bitmap, an errgroup-bounded compaction worker pool) rather than
// the original's C structures.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/cache"
	"github.com/Kevin-Yang1/remixdb/internal/qsbr"
	"github.com/Kevin-Yang1/remixdb/internal/sstable"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/Kevin-Yang1/remixdb/internal/wal"
)

// Engine owns one open database directory: the WAL, the WMT/IMT view ring,
// the sstable version chain, and the qsbr domain coordinating their
// retirement. All of its exported methods are safe for concurrent use by
// multiple Refs.
type Engine struct {
	cfg Config

	// mu serializes WAL appends and view-ring transitions, mirroring the
	// original's xdb_lock/xdb_unlock spinlock. It is held for the duration
	// of a memtable upsert plus WAL buffer copy, and across the WAL
	// flush-and-fsync of Sync and of compaction's final wait, but never
	// across a whole compaction pass.
	mu sync.Mutex

	ring   *viewRing
	wal    *wal.WAL
	sst    *sstable.Engine
	domain *qsbr.Domain
	cache  *cache.Cache
	metrics *Metrics

	compactMu sync.Mutex // serializes compaction passes; holders do not hold mu
	walGen    atomic.Uint64
	jobID     atomic.Int64
	closed    atomic.Bool
}

// Open opens (creating if necessary) the database at cfg.Dir, replaying its
// WAL against the recovered sstable version.
func Open(cfg Config) (*Engine, error) {
	if cfg.FS == nil {
		cfg.FS = vfs.Default
	}
	if err := cfg.FS.MkdirAll(cfg.Dir); err != nil {
		return nil, err
	}

	var bc *cache.Cache
	if cfg.CacheSizeBytes > 0 {
		bc = cache.New(cfg.CacheSizeBytes)
	}

	codec := byte(sstable.CodecNone)
	if cfg.Ckeys {
		codec = sstable.CodecSnappy
	}
	sst, err := sstable.Open(cfg.FS, cfg.Dir, sstable.WriterOptions{Codec: codec, Tags: cfg.Tags}, bc)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		sst:    sst,
		domain: qsbr.NewDomain(),
		cache:  bc,
	}
	e.metrics = newMetrics(sst)
	e.ring = newViewRing(sst.CurrentVersion())

	if err := e.recoverOrInit(); err != nil {
		return nil, err
	}
	return e, nil
}

// Metrics returns the engine's Prometheus collectors, for the caller to
// register against its own registry.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// NewRef registers a per-thread handle for issuing operations against e.
func (e *Engine) NewRef() *Ref {
	return &Ref{e: e, qr: e.domain.Register()}
}

// Sync durably fsyncs the WAL up to the last Append issued by any Ref.
func (e *Engine) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wal.FlushSyncWait()
}

// Close flushes and closes the WAL. It does not wait for any in-flight
// compaction; callers that need a quiesced shutdown should stop issuing
// new operations and call Sync first.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return base.ErrClosed
	}
	return e.wal.Close()
}

// mtsz returns the combined accounted size of the WMT and (if any) IMT in
// the currently published view, used to decide whether a switch is due.
func (e *Engine) mtsz(v *mtView) int64 {
	n := v.wmt.ApproxSize()
	if v.imt != nil {
		n += v.imt.ApproxSize()
	}
	return n
}

// maybeTriggerCompaction checks the current view's size against the
// configured threshold and, if exceeded, runs a compaction pass. Called
// without e.mu held; compact() takes whatever locks it needs internally.
func (e *Engine) maybeTriggerCompaction() error {
	v := e.ring.current()
	if v.imt != nil {
		return nil // a compaction is already in flight
	}
	due := e.mtsz(v) >= e.cfg.MTSizeBytes
	if !due && e.cfg.WALSizeBytes > 0 {
		due = e.wal.CurrentSize() >= e.cfg.WALSizeBytes
	}
	if !due {
		return nil
	}
	return e.compact()
}
