package memtable

import "github.com/Kevin-Yang1/remixdb/internal/base"

// Iterator walks a Memtable's keys in ascending order. It is invariant
// under concurrent writes to other keys: once positioned at a node, the
// iterator only follows that node's own level-0 successor pointer, which
// other writers only ever extend (never unlink), so a concurrently-inserted
// key never disturbs an iterator already past it.
type Iterator struct {
	m   *Memtable
	cur *node
}

// NewIter creates an iterator over m, initially invalid (call Seek).
func (m *Memtable) NewIter() *Iterator {
	return &Iterator{m: m}
}

// Seek positions the iterator at the first key >= target.
func (it *Iterator) Seek(target []byte) {
	it.m.t.mu.RLock()
	it.cur = it.m.t.findGreaterOrEqual(target, nil)
	it.m.t.mu.RUnlock()
}

// SeekToFirst positions the iterator at the smallest key.
func (it *Iterator) SeekToFirst() {
	it.m.t.mu.RLock()
	it.cur = it.m.t.head.next(0)
	it.m.t.mu.RUnlock()
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.cur != nil }

// Peek returns the record currently pointed at, without advancing.
func (it *Iterator) Peek() *base.Record {
	if it.cur == nil {
		return nil
	}
	return it.cur.rec.Load()
}

// Kref returns a non-owning reference to the current key.
func (it *Iterator) Kref() base.Kref {
	return base.MakeKref(it.cur.key)
}

// Kvref returns a non-owning reference to the current key-value pair.
func (it *Iterator) Kvref() base.Kvref {
	return base.KvrefFromRecord(it.cur.rec.Load())
}

// Skip1 advances the iterator by one key.
func (it *Iterator) Skip1() {
	if it.cur == nil {
		return
	}
	it.cur = it.cur.next(0)
}

// Skip advances the iterator by n keys.
func (it *Iterator) Skip(n int) {
	for i := 0; i < n && it.cur != nil; i++ {
		it.cur = it.cur.next(0)
	}
}

// Park releases nothing for a memtable iterator (there is no per-iterator
// lock held across calls); Park/Resume exist to satisfy the shared
// iterator contract of spec.md §4.2 and are no-ops here.
func (it *Iterator) Park() {}

// Resume is the counterpart of Park.
func (it *Iterator) Resume() {}

// Destroy releases the iterator. Memtable iterators hold no external
// resources, so this is a no-op beyond dropping the reference.
func (it *Iterator) Destroy() { it.cur = nil }
