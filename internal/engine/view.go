package engine

import (
	"sync/atomic"

	"github.com/Kevin-Yang1/remixdb/internal/memtable"
	"github.com/Kevin-Yang1/remixdb/internal/sstable"
)

// mtView is one immutable snapshot of "what does a reader see right now":
// which physical memtable is the write target, which (if any) is frozen
// awaiting compaction, and which SSTable version backs everything older.
// Grounded on original_source/xdb.c's mt_views[4] ring: readers load a
// single pointer to a view rather than separately loading wmt/imt/sstv
// pointers, so a concurrent switch can never be observed half-applied.
type mtView struct {
	wmt  *memtable.Memtable
	imt  *memtable.Memtable // nil when no compaction is in flight
	sstv *sstable.Version
}

// viewRing holds the four preallocated view slots plus the two physical
// memtables they rotate between, and an atomic index naming the live slot.
// Only compaction ever writes to a slot, and only the slot one step ahead
// of the currently-published index — so a reader loading the index and
// then the slot it names never observes a write in progress.
type viewRing struct {
	physical [2]*memtable.Memtable
	slots    [4]mtView
	idx      atomic.Uint32
	gen      atomic.Uint64
}

func newViewRing(sstv *sstable.Version) *viewRing {
	a := memtable.New()
	b := memtable.New()
	r := &viewRing{physical: [2]*memtable.Memtable{a, b}}
	r.slots[0] = mtView{wmt: a, sstv: sstv}
	r.slots[1] = mtView{wmt: b, imt: a, sstv: sstv}
	r.slots[2] = mtView{wmt: b, sstv: sstv}
	r.slots[3] = mtView{wmt: a, imt: b, sstv: sstv}
	return r
}

// current returns the live view.
func (r *viewRing) current() *mtView {
	return &r.slots[r.idx.Load()]
}

// generation returns a counter that strictly increases every time freeze or
// publish moves the ring to a new slot, so a long-lived reader can tell
// whether the view it last built streams against is stale — per spec.md
// §4.4, "on every seek the iterator checks whether the engine's current
// view has advanced... if so it tears down its merging streams and rebuilds
// them against the new view."
func (r *viewRing) generation() uint64 {
	return r.gen.Load()
}

// freeze advances from a "no IMT" state (0 or 2) into the paired "IMT
// frozen" state (1 or 3): the memtable that was WMT becomes IMT, and the
// other physical table — already emptied by a prior compaction's Clean —
// becomes the new WMT.
func (r *viewRing) freeze() (imt, wmt *memtable.Memtable) {
	cur := r.idx.Load()
	next := (cur + 1) % 4
	r.slots[next].sstv = r.slots[cur].sstv
	r.idx.Store(next)
	r.gen.Add(1)
	v := &r.slots[next]
	return v.imt, v.wmt
}

// publish advances from an "IMT frozen" state (1 or 3) into the next "no
// IMT" state (2 or 0), pointing every subsequent read at newVersion, and
// reports the sstable version the now-retired view was still pointing at
// (for the caller to Unref once qsbr has quiesced past this point).
func (r *viewRing) publish(newVersion *sstable.Version) (retiredVersion *sstable.Version) {
	cur := r.idx.Load()
	next := (cur + 1) % 4
	retiredVersion = r.slots[cur].sstv
	r.slots[next].sstv = newVersion
	r.idx.Store(next)
	r.gen.Add(1)
	return retiredVersion
}
