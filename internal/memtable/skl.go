package memtable

import (
	"bytes"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/Kevin-Yang1/remixdb/internal/base"
)

// maxHeight bounds the skiplist's tower height, as arenaskl bounds node
// height by a compile-time constant (_examples/cockroachdb-pebble/internal/
// arenaskl/arena.go uses a fixed per-node encoding for the same reason).
const maxHeight = 20

// node is a skiplist node. Unlike the teacher's arena-backed node
// (off-heap, offset-addressed towers for cache locality), remixdb nodes are
// ordinary heap objects with atomic.Pointer towers spliced under skl.mu:
// Go's GC removes the motivation for a custom arena allocator, and a
// lock-guarded splice is far easier to get right than CAS insertion. See
// DESIGN.md for the adaptation rationale.
type node struct {
	key    []byte
	rec    atomic.Pointer[base.Record]
	mu     sync.Mutex // serializes merge() read-modify-write on this key
	tower  [maxHeight]atomic.Pointer[node]
	height int
}

func (n *node) next(level int) *node { return n.tower[level].Load() }

// skl is a read/write-locked ordered skiplist keyed by byte-string. Searches
// and iterator seeks take skl.mu's read lock, so they wait only while a
// brand-new key is being spliced in; iterator steps take no lock.
// Structural inserts of a brand-new key take skl.mu; updates to an existing
// key's value only ever
// CAS/replace the node's Record pointer or lock the node's own mutex for the
// merge RMW, so two writers touching different existing keys never block
// each other, matching spec.md §4.2's "single writer per key" requirement
// without serializing the whole table.
type skl struct {
	mu     sync.RWMutex
	head   node
	height atomic.Int32
	rnd    *rand.Rand
	rndMu  sync.Mutex
	size   atomic.Int64
	count  atomic.Int64
}

func newSkl() *skl {
	s := &skl{rnd: rand.New(rand.NewSource(1))}
	s.height.Store(1)
	s.head.height = maxHeight
	return s
}

func (s *skl) randomHeight() int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	h := 1
	for h < maxHeight && s.rnd.Intn(4) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual walks from head returning, at every level, the last
// node strictly less than key (preds) — used both for read lookups and for
// splicing in new nodes.
func (s *skl) findGreaterOrEqual(key []byte, preds *[maxHeight]*node) *node {
	x := &s.head
	height := int(s.height.Load())
	for level := height - 1; level >= 0; level-- {
		for {
			next := x.next(level)
			if next == nil || bytes.Compare(next.key, key) >= 0 {
				break
			}
			x = next
		}
		if preds != nil {
			preds[level] = x
		}
	}
	return x.next(0)
}

// get returns the node matching key exactly, or nil.
func (s *skl) get(key []byte) *node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.findGreaterOrEqual(key, nil)
	if n != nil && bytes.Equal(n.key, key) {
		return n
	}
	return nil
}

// upsert applies fn as a read-modify-write against the node for key,
// inserting a new node if absent. fn receives the existing record (nil if
// the key is absent) and returns the record to store (nil deletes the
// node's payload conceptually, but remixdb never removes memtable nodes
// structurally — callers encode "deleted" as a tombstone record) plus the
// size delta to apply to s.size.
func (s *skl) upsert(key []byte, fn func(old *base.Record) (*base.Record, int64)) {
	if n := s.get(key); n != nil {
		n.mu.Lock()
		old := n.rec.Load()
		next, delta := fn(old)
		n.rec.Store(next)
		n.mu.Unlock()
		s.size.Add(delta)
		return
	}

	s.mu.Lock()
	var preds [maxHeight]*node
	existing := s.findGreaterOrEqual(key, &preds)
	if existing != nil && bytes.Equal(existing.key, key) {
		s.mu.Unlock()
		existing.mu.Lock()
		old := existing.rec.Load()
		next, delta := fn(old)
		existing.rec.Store(next)
		existing.mu.Unlock()
		s.size.Add(delta)
		return
	}

	next, delta := fn(nil)
	h := s.randomHeight()
	if h > int(s.height.Load()) {
		s.height.Store(int32(h))
		// preds above the old height point at head by construction since
		// findGreaterOrEqual only filled up to the old height.
		for l := 0; l < h; l++ {
			if preds[l] == nil {
				preds[l] = &s.head
			}
		}
	}
	n := &node{key: append([]byte(nil), key...), height: h}
	n.rec.Store(next)
	for l := 0; l < h; l++ {
		n.tower[l].Store(preds[l].next(l))
		preds[l].tower[l].Store(n)
	}
	s.mu.Unlock()
	s.size.Add(delta)
	s.count.Add(1)
}

// clean empties the skiplist in place, preserving it for reuse as the spec
// requires ("clean: empties the memtable in-place, preserving allocations
// for reuse").
func (s *skl) clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l := 0; l < maxHeight; l++ {
		s.head.tower[l].Store(nil)
	}
	s.height.Store(1)
	s.size.Store(0)
	s.count.Store(0)
}

func (s *skl) approxSize() int64 { return s.size.Load() }
func (s *skl) approxCount() int64 { return s.count.Load() }
