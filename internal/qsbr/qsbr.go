// Package qsbr implements quiescent-state-based reclamation: the epoch
// protocol that lets the compaction pipeline retire an old MT-view (and the
// memtable/SSTable-version it points at) only after every reader that might
// still observe it has crossed a generation boundary.
//
// Go's garbage collector reclaims memory on its own, but it has no notion of
// "this object is logically retired but a concurrent reader still holds a
// raw pointer into reusable storage" — which is exactly remixdb's situation:
// the IMT memtable and the old SSTable version are reused/released in place
// once no reader can see them, not merely garbage collected. QSBR is
// therefore still needed despite Go's GC, grounded on the original's
// qsbr_register / qsbr_wait / qsbr_park / qsbr_resume (original_source/lib.h)
// and adapted to sharded atomics instead of a hand-rolled bitmap, the
// idiomatic Go substitute for the same sharding idea.
package qsbr

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const shardCount = 16

// parkedGen marks a Ref as parked: the writer treats it as always having
// passed any target generation, exactly as "park/resume" in spec.md §5.
const parkedGen = ^uint64(0)

// Domain is a registry of reader handles (Ref) sharded to reduce
// contention between writers scanning for quiescence and readers updating
// their own generation.
type Domain struct {
	gen    atomic.Uint64
	next   atomic.Uint64
	shards [shardCount]shard
}

type shard struct {
	mu   sync.Mutex
	refs map[*Ref]struct{}
}

// NewDomain creates an empty reclamation domain.
func NewDomain() *Domain {
	d := &Domain{}
	for i := range d.shards {
		d.shards[i].refs = make(map[*Ref]struct{})
	}
	d.gen.Store(1)
	return d
}

// Ref is a per-thread (per-goroutine-lineage) handle registered with a
// Domain. Operations call Update on every top-level call, as spec.md §5
// requires ("Readers must periodically update their generation value").
type Ref struct {
	domain *Domain
	shard  *shard
	gen    atomic.Uint64
}

// Register creates and registers a new Ref against d.
func (d *Domain) Register() *Ref {
	r := &Ref{domain: d}
	r.gen.Store(d.gen.Load())
	idx := d.next.Add(1) % shardCount
	r.shard = &d.shards[idx]
	r.shard.mu.Lock()
	r.shard.refs[r] = struct{}{}
	r.shard.mu.Unlock()
	return r
}

// Unregister removes r from its domain; it must not be used afterwards.
func (r *Ref) Unregister() {
	r.shard.mu.Lock()
	delete(r.shard.refs, r)
	r.shard.mu.Unlock()
}

// Update records that r has reached the domain's current generation,
// meaning it no longer observes any state retired at an earlier
// generation. Call on every top-level read/write operation.
func (r *Ref) Update() {
	r.gen.Store(r.domain.gen.Load())
}

// Park marks r as temporarily quiescent: the writer will treat it as having
// passed any generation until Resume is called. Use when a reader is about
// to block or sit idle (e.g. a parked iterator) and should not hold up
// reclamation.
func (r *Ref) Park() {
	r.gen.Store(parkedGen)
}

// Resume un-parks r, re-synchronizing it to the domain's current
// generation.
func (r *Ref) Resume() {
	r.Update()
}

// Advance bumps the domain's generation and returns the new value. Call
// before Wait when retiring an object.
func (d *Domain) Advance() uint64 {
	return d.gen.Add(1)
}

// Current returns the domain's current generation without advancing it.
func (d *Domain) Current() uint64 {
	return d.gen.Load()
}

// Wait blocks until every registered Ref has observed a generation >=
// target (or is parked). This is the qsbr_wait of spec.md §4.2/§5, called
// after every MT-view rotation.
func (d *Domain) Wait(target uint64) {
	for {
		quiesced := true
		for i := range d.shards {
			sh := &d.shards[i]
			sh.mu.Lock()
			for r := range sh.refs {
				g := r.gen.Load()
				if g != parkedGen && g < target {
					quiesced = false
				}
			}
			sh.mu.Unlock()
			if !quiesced {
				break
			}
		}
		if quiesced {
			return
		}
		runtime.Gosched()
	}
}
