// Package memtable implements the ordered, concurrent in-memory write
// table the engine calls WMT (writable) and IMT (immutable during
// compaction), per spec.md §3/§4.2. The teacher's generic concurrent
// ordered map (a trie of hashed leaves) is an explicit non-goal of the
// spec's core; this package instead satisfies the same contract on top of
// an adapted arena-skiplist, the structure pebble itself uses for the
// analogous role (_examples/cockroachdb-pebble/mem_table.go,
// internal/arenaskl).
package memtable

import (
	"github.com/Kevin-Yang1/remixdb/internal/base"
)

// Memtable is an ordered map from key to *base.Record, safe for concurrent
// readers and per-key-serialized writers.
type Memtable struct {
	t *skl
}

// New returns an empty, reusable Memtable.
func New() *Memtable {
	return &Memtable{t: newSkl()}
}

// Get returns the record for key, or (nil, false) if absent. It does not
// interpret tombstones; callers decide whether a tombstone counts as
// "found" for their purposes.
func (m *Memtable) Get(key []byte) (*base.Record, bool) {
	n := m.t.get(key)
	if n == nil {
		return nil, false
	}
	rec := n.rec.Load()
	if rec == nil {
		return nil, false
	}
	return rec, true
}

// Probe reports whether key has a live (non-tombstone) record.
func (m *Memtable) Probe(key []byte) bool {
	rec, ok := m.Get(key)
	return ok && rec != nil && !rec.Tombstone
}

// Put inserts or overwrites the record for rec.Key with rec.
func (m *Memtable) Put(rec *base.Record) {
	m.t.upsert(rec.Key, func(old *base.Record) (*base.Record, int64) {
		var delta int64
		if old != nil {
			delta -= int64(old.Size())
		}
		delta += int64(rec.Size())
		return rec, delta
	})
}

// Del inserts a tombstone record for key, mirroring Put. The caller
// supplies the fully-formed tombstone record (see base.NewRecord with
// tombstone=true) so the memtable never has to allocate one itself.
func (m *Memtable) Del(rec *base.Record) {
	m.Put(rec)
}

// MergeFunc is the read-modify-write callback passed to Merge. It receives
// the current record (nil if absent) and returns the record to store
// (possibly old itself, for a no-op) or nil to leave the key untouched.
// MergeFunc may be invoked more than once on abort/retry; only the last
// invocation's result is applied.
type MergeFunc func(old *base.Record) *base.Record

// Merge performs an atomic read-modify-write against the record for key.
// It reports whether the key was present before the call (the caller uses
// this to decide whether to fall through to an older layer, per spec.md
// §4.6's two-phase merge).
func (m *Memtable) Merge(key []byte, fn MergeFunc) (present bool) {
	m.t.upsert(key, func(old *base.Record) (*base.Record, int64) {
		present = old != nil
		next := fn(old)
		if next == nil {
			return old, 0
		}
		var delta int64
		if old != nil {
			delta -= int64(old.Size())
		}
		if next != nil {
			delta += int64(next.Size())
		}
		return next, delta
	})
	return present
}

// ApproxSize returns the memtable's current accounted size (mtsz
// contribution of this table).
func (m *Memtable) ApproxSize() int64 { return m.t.approxSize() }

// ApproxCount returns the number of distinct keys stored.
func (m *Memtable) ApproxCount() int64 { return m.t.approxCount() }

// Clean empties the memtable in place for reuse as the next generation's
// WMT, per spec.md §4.2.
func (m *Memtable) Clean() { m.t.clean() }
