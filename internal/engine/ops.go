package engine

import (
	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/qsbr"
	"github.com/cockroachdb/errors"
)

// Ref is a per-thread handle on an Engine, registered with its qsbr.Domain
// so a long-lived caller (an iterator, a goroutine making many calls) is
// visible to compaction's quiescence wait. Create one per goroutine; Refs
// are not safe for concurrent use by multiple goroutines themselves.
type Ref struct {
	e  *Engine
	qr *qsbr.Ref
}

// Close unregisters the ref. It must not be used afterwards.
func (r *Ref) Close() { r.qr.Unregister() }

// Park releases r from blocking compaction's quiescence wait while it sits
// idle, e.g. between calls on a long-lived iterator.
func (r *Ref) Park() { r.qr.Park() }

// Resume un-parks r, matching Park.
func (r *Ref) Resume() { r.qr.Resume() }

// Get returns the value for key, walking WMT, then IMT (if a compaction is
// in flight), then the published sstable version — the rank order of
// spec.md §4.4 (WMT=2, IMT=1, sstable version=0, highest rank wins).
// Returns base.ErrNotFound if key is absent or its most recent record is a
// tombstone.
func (r *Ref) Get(key []byte) ([]byte, error) {
	r.qr.Update()
	v := r.e.ring.current()
	if rec, ok := v.wmt.Get(key); ok {
		return valueOrNotFound(rec)
	}
	if v.imt != nil {
		if rec, ok := v.imt.Get(key); ok {
			return valueOrNotFound(rec)
		}
	}
	rec, err := v.sstv.GetTS(key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, base.ErrNotFound
	}
	return rec.Value, nil
}

func valueOrNotFound(rec *base.Record) ([]byte, error) {
	if rec.Tombstone {
		return nil, base.ErrNotFound
	}
	return rec.Value, nil
}

// Probe reports whether key has a live (non-tombstone) record.
func (r *Ref) Probe(key []byte) (bool, error) {
	_, err := r.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, base.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Put inserts or overwrites the value for key.
func (r *Ref) Put(key, value []byte) error {
	if err := base.CheckSize(len(key), len(value)); err != nil {
		return err
	}
	rec := base.NewRecord(append([]byte(nil), key...), append([]byte(nil), value...), false)
	return r.apply(rec)
}

// Del inserts a tombstone for key.
func (r *Ref) Del(key []byte) error {
	rec := base.NewRecord(append([]byte(nil), key...), nil, true)
	return r.apply(rec)
}

func (r *Ref) apply(rec *base.Record) error {
	r.qr.Update()
	e := r.e
	e.mu.Lock()
	err := e.wal.Append(rec)
	if err == nil {
		e.ring.current().wmt.Put(rec)
	}
	e.mu.Unlock()
	// Park r before a compaction this write may trigger: compact waits for
	// every unparked ref to reach a new generation, r included. The next
	// operation on r calls Update again.
	r.qr.Park()
	if err != nil {
		return err
	}
	return e.maybeTriggerCompaction()
}

// MergeFunc is the read-modify-write callback passed to Merge. It receives
// the most recent record for key — found by the same WMT/IMT/sstable rank
// walk as Get, nil if absent — and returns the record to install, or nil to
// leave the key untouched.
type MergeFunc func(old *base.Record) *base.Record

// Merge performs an atomic read-modify-write against key, per spec.md
// §4.6's two-phase merge: phase one probes WMT (the only memtable that can
// race with concurrent writers to the same key); if absent there, phase
// two resolves the most recent value from IMT/sstable inside the same
// upsert callback and passes that to fn as the seed. e.mu is held for the
// whole call, so the read-modify-write still observes
// serialized-per-key semantics against other concurrent Merge/Put calls on
// the same key.
func (r *Ref) Merge(key []byte, fn MergeFunc) error {
	r.qr.Update()
	e := r.e
	e.mu.Lock()
	defer e.mu.Unlock()

	wmt := e.ring.current().wmt
	var applied *base.Record
	wmt.Merge(key, func(old *base.Record) *base.Record {
		var next *base.Record
		if old != nil {
			next = fn(old)
		} else {
			next = fn(r.resolveBelowWMT(key))
		}
		applied = next
		return next
	})
	if applied == nil {
		return nil // fn declined to change the key
	}
	return e.wal.Append(applied)
}

// resolveBelowWMT looks up key in IMT then the published sstable version,
// used to seed a Merge call that found no existing WMT entry.
func (r *Ref) resolveBelowWMT(key []byte) *base.Record {
	v := r.e.ring.current()
	if v.imt != nil {
		if rec, ok := v.imt.Get(key); ok {
			return rec
		}
	}
	rec, err := v.sstv.GetTS(key)
	if err != nil || rec == nil {
		return nil
	}
	return rec
}

// Sync durably fsyncs every Put/Del/Merge issued so far.
func (r *Ref) Sync() error {
	return r.e.Sync()
}
