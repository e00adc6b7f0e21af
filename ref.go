package remixdb

import (
	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/engine"
)

// Ref is a per-goroutine handle on a DB. Create one per goroutine with
// DB.NewRef; Refs are not safe for concurrent use by multiple goroutines
// themselves, matching the underlying qsbr.Ref registration they wrap.
type Ref struct {
	r *engine.Ref
}

// Close unregisters the ref. It must not be used afterwards.
func (r *Ref) Close() {
	r.r.Close()
}

// Park releases r from blocking a compaction pass's quiescence wait while
// it sits idle, e.g. between calls on a long-lived Iterator. Resume before
// issuing another call.
func (r *Ref) Park() {
	r.r.Park()
}

// Resume un-parks r, matching Park.
func (r *Ref) Resume() {
	r.r.Resume()
}

// Get returns the value for key, or base.ErrNotFound if it is absent or
// its most recent record is a tombstone.
func (r *Ref) Get(key []byte) ([]byte, error) {
	return r.r.Get(key)
}

// Probe reports whether key has a live (non-tombstone) record, without
// paying for a value copy.
func (r *Ref) Probe(key []byte) (bool, error) {
	return r.r.Probe(key)
}

// Put inserts or overwrites the value for key.
func (r *Ref) Put(key, value []byte) error {
	return r.r.Put(key, value)
}

// Del inserts a tombstone for key.
func (r *Ref) Del(key []byte) error {
	return r.r.Del(key)
}

// MergeFunc is the read-modify-write callback passed to Merge. It receives
// the most recent record's value for key (nil if absent, or if the most
// recent record is a tombstone) and whether a live record was found, and
// returns the new value to install and whether to delete the key instead.
type MergeFunc func(old []byte, found bool) (newValue []byte, del bool)

// Merge performs an atomic read-modify-write against key.
func (r *Ref) Merge(key []byte, fn MergeFunc) error {
	return r.r.Merge(key, func(old *base.Record) *base.Record {
		var oldValue []byte
		found := old != nil && !old.Tombstone
		if found {
			oldValue = old.Value
		}
		newValue, del := fn(oldValue, found)
		if del {
			return base.NewRecord(append([]byte(nil), key...), nil, true)
		}
		return base.NewRecord(append([]byte(nil), key...), append([]byte(nil), newValue...), false)
	})
}

// Sync durably fsyncs every Put/Del/Merge issued so far by any Ref on the
// same DB.
func (r *Ref) Sync() error {
	return r.r.Sync()
}

// NewIterator returns an iterator over the view current at call time.
func (r *Ref) NewIterator() *Iterator {
	return &Iterator{it: r.r.NewIterator()}
}
