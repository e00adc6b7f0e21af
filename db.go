// Package remixdb implements an embedded ordered key-value store on an
// LSM-tree with a REMIX range index, following the layout and idioms of
// the teacher's top-level package: a thin public surface (DB, Ref,
// Iterator, Options) wrapping an unexported engine that does the real
// work, so the storage internals can evolve without breaking callers.
package remixdb

import (
	"github.com/Kevin-Yang1/remixdb/internal/engine"
)

// DB is an open database directory. The zero value is not usable; create
// one with Open.
type DB struct {
	e *engine.Engine
}

// Open opens (creating if necessary) the database at dir with the given
// options, replaying its write-ahead log against the most recently
// published sstable version.
func Open(dir string, opts Options) (*DB, error) {
	opts = opts.EnsureDefaults()
	e, err := engine.Open(opts.toEngineConfig(dir))
	if err != nil {
		return nil, err
	}
	return &DB{e: e}, nil
}

// Close flushes and closes the database. It does not wait for any
// in-flight compaction; callers that need a quiesced shutdown should stop
// issuing new operations and call Sync on every outstanding Ref first.
func (db *DB) Close() error {
	return db.e.Close()
}

// NewRef registers a per-goroutine handle for issuing reads and writes
// against db. Create one per goroutine; Refs are not safe for concurrent
// use by multiple goroutines themselves.
func (db *DB) NewRef() *Ref {
	return &Ref{r: db.e.NewRef()}
}

// Metrics is the set of Prometheus collectors an open DB exposes.
type Metrics = engine.Metrics

// Metrics returns the database's Prometheus collectors, for the caller to
// register against its own registry.
func (db *DB) Metrics() *Metrics {
	return db.e.Metrics()
}

// Sync durably fsyncs every write issued so far by any Ref.
func (db *DB) Sync() error {
	return db.e.Sync()
}
