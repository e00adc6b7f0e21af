package engine

import (
	"container/heap"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/memtable"
	"github.com/Kevin-Yang1/remixdb/internal/sstable"
)

// maxStreams bounds the merge heap's width. remixdb's view ring only ever
// produces three live streams (WMT, an optional frozen IMT, and one
// concatenated sstable-version stream), but the heap itself is general over
// however many streams are pushed, mirroring the teacher's
// merging_iter.go, which merges one stream per LSM level; 18 is an
// intentionally generous ceiling (spec.md never runs more than a handful
// of levels in practice).
const maxStreams = 18

// rank orders streams by recency: a higher rank wins when two streams
// agree on a key, matching spec.md §4.4 (WMT=2, IMT=1, sstable version=0).
const (
	rankSSTable = 0
	rankIMT     = 1
	rankWMT     = 2
)

// stream is the narrow interface the merge heap needs from any underlying
// iterator (memtable.Iterator and sstable.VersionIter both satisfy it via
// the adapters below, despite their differently-named advance methods).
type stream interface {
	Valid() bool
	Peek() *base.Record
	Advance()
}

type memStream struct{ it *memtable.Iterator }

func (s memStream) Valid() bool          { return s.it.Valid() }
func (s memStream) Peek() *base.Record   { return s.it.Peek() }
func (s memStream) Advance()             { s.it.Skip1() }

type sstStream struct{ it *sstable.VersionIter }

func (s sstStream) Valid() bool        { return s.it.Valid() }
func (s sstStream) Peek() *base.Record { return s.it.Peek() }
func (s sstStream) Advance()           { s.it.Next() }

type heapItem struct {
	s    stream
	rank int
}

// streamHeap orders items by key ascending, breaking ties by rank
// descending so the most recent layer's record surfaces first.
type streamHeap []heapItem

func (h streamHeap) Len() int { return len(h) }
func (h streamHeap) Less(i, j int) bool {
	c := sstable.Compare(h[i].s.Peek().Key, h[j].s.Peek().Key)
	if c != 0 {
		return c < 0
	}
	return h[i].rank > h[j].rank
}
func (h streamHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *streamHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *streamHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Iterator walks a consistent snapshot of WMT, IMT (if one was frozen at
// the moment the iterator was created) and the published sstable version
// in ascending key order, resolving duplicate keys by rank and hiding
// tombstones, matching spec.md §4.4's external iterator contract.
type Iterator struct {
	ref *Ref
	gen uint64 // view generation these streams were built against
	h   streamHeap
	cur *base.Record
	err error
}

// NewIterator returns an iterator over the view current at call time. The
// caller must call Park/Resume around any idle period and Destroy when
// done, exactly as spec.md §4.2 requires of the underlying memtable
// iterators.
func (r *Ref) NewIterator() *Iterator {
	r.qr.Update()
	it := &Iterator{ref: r}
	it.rebuild()
	return it
}

// rebuild tears down the iterator's current streams and opens fresh ones
// against the engine's current view, recording the view generation so a
// later seek can tell whether it has gone stale.
func (it *Iterator) rebuild() {
	r := it.ref.e.ring
	v := r.current()
	it.gen = r.generation()

	h := make(streamHeap, 0, 3)
	wmtIt := v.wmt.NewIter()
	h = append(h, heapItem{s: memStream{wmtIt}, rank: rankWMT})
	if v.imt != nil {
		imtIt := v.imt.NewIter()
		h = append(h, heapItem{s: memStream{imtIt}, rank: rankIMT})
	}
	sstIt := v.sstv.NewIter()
	h = append(h, heapItem{s: sstStream{sstIt}, rank: rankSSTable})
	it.h = h
}

// rebuildIfStale tears down and rebuilds the iterator's streams against the
// current view when a compaction has moved the ring since they were built,
// per spec.md §4.4: point/range reads must never block compaction, so an
// open iterator re-anchors itself on its next seek instead of continuing to
// reference a physical memtable that may since have been recycled.
func (it *Iterator) rebuildIfStale() {
	if it.ref.e.ring.generation() != it.gen {
		it.rebuild()
	}
}

func (it *Iterator) seedHeap(seek func(stream)) {
	live := it.h[:0]
	for _, item := range it.h {
		seek(item.s)
		if item.s.Valid() {
			live = append(live, item)
		}
	}
	it.h = live
	heap.Init(&it.h)
	it.advanceToDistinctKey()
}

// SeekToFirst positions the iterator at the smallest live key across every
// stream.
func (it *Iterator) SeekToFirst() {
	it.rebuildIfStale()
	it.seedHeap(func(s stream) {
		switch v := s.(type) {
		case memStream:
			v.it.SeekToFirst()
		case sstStream:
			v.it.SeekToFirst()
		}
	})
}

// Seek positions the iterator at the first live key >= target.
func (it *Iterator) Seek(target []byte) {
	it.rebuildIfStale()
	it.seedHeap(func(s stream) {
		switch v := s.(type) {
		case memStream:
			v.it.Seek(target)
		case sstStream:
			v.it.Seek(target)
		}
	})
}

// advanceToDistinctKey pops every heap entry sharing the current minimum
// key, keeping only the highest-ranked record as it.cur (or skipping the
// key entirely if that record is a tombstone), then re-pushes each popped
// stream at its next key. It loops until a live, non-tombstone key is
// found or every stream is exhausted.
func (it *Iterator) advanceToDistinctKey() {
	for len(it.h) > 0 {
		key := append([]byte(nil), it.h[0].s.Peek().Key...)
		// The heap's Less orders equal keys by rank descending, so the
		// root here is already the highest-ranked record for key.
		best := it.h[0].s.Peek()

		for len(it.h) > 0 && sstable.Compare(it.h[0].s.Peek().Key, key) == 0 {
			item := heap.Pop(&it.h).(heapItem)
			item.s.Advance()
			if ss, ok := item.s.(sstStream); ok {
				if err := ss.it.Err(); err != nil {
					it.err = err
				}
			}
			if item.s.Valid() {
				heap.Push(&it.h, item)
			}
		}

		if !best.Tombstone {
			it.cur = best
			return
		}
	}
	it.cur = nil
}

// Valid reports whether the iterator is positioned at a live record.
func (it *Iterator) Valid() bool { return it.cur != nil }

// Err returns any error encountered while reading the sstable layer.
func (it *Iterator) Err() error { return it.err }

// Peek returns the current record's key/value.
func (it *Iterator) Peek() *base.Record { return it.cur }

// Next advances to the next distinct live key.
func (it *Iterator) Next() {
	if it.cur == nil {
		return
	}
	it.advanceToDistinctKey()
}

// Park releases the iterator's ref from blocking compaction's quiescence
// wait while it sits idle.
func (it *Iterator) Park() { it.ref.Park() }

// Resume un-parks the iterator.
func (it *Iterator) Resume() { it.ref.Resume() }

// Destroy releases the iterator's resources.
func (it *Iterator) Destroy() { it.cur = nil; it.h = nil }
