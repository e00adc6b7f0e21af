package sstable

import (
	"bytes"
	"sort"
	"sync/atomic"

	"github.com/Kevin-Yang1/remixdb/internal/base"
)

// Anchor is one partition boundary. Disposition records how the compaction
// pass that produced the version treated this partition (spec.md §3
// "Compaction anchor disposition"): base.Accepted if it was rewritten,
// base.Rejected if its old files were carried over. It is persisted in the
// version file, so a version loaded from disk carries the same values.
type Anchor struct {
	Key         []byte
	Disposition base.Disposition
}

// Version is a reference-counted, anchor-partitioned sorted sequence of
// Tables, mirroring struct msstv (original_source/sst.h) and the teacher's
// version.go.
type Version struct {
	number     uint64
	partitions []*Table
	anchors    []Anchor
	refs       atomic.Int32
}

// newVersion builds a Version from parallel partitions/anchors slices,
// which must be the same length and sorted ascending by anchor key.
func newVersion(number uint64, partitions []*Table, anchors []Anchor) *Version {
	v := &Version{number: number, partitions: partitions, anchors: anchors}
	v.refs.Store(1)
	return v
}

// Number returns this version's numeric id.
func (v *Version) Number() uint64 { return v.number }

// Anchors returns the partition boundary array, exposed for the
// compaction-rejection walk of spec.md §4.3 step 5.
func (v *Version) Anchors() []Anchor { return v.anchors }

// Partitions exposes the underlying tables, in anchor order.
func (v *Version) Partitions() []*Table { return v.partitions }

// Ref increments v's reference count.
func (v *Version) Ref() { v.refs.Add(1) }

// Unref decrements v's reference count. The caller (internal/engine) is
// responsible for only calling Unref once no reader could still observe v,
// i.e. after the owning qsbr.Domain has quiesced past the generation at
// which v was retired.
func (v *Version) Unref() int32 { return v.refs.Add(-1) }

// partitionIndex returns the index of the partition whose range [anchor_i,
// anchor_i+1) contains key.
func (v *Version) partitionIndex(key []byte) int {
	if len(v.anchors) == 0 {
		return -1
	}
	i := sort.Search(len(v.anchors), func(i int) bool {
		return bytes.Compare(v.anchors[i].Key, key) > 0
	})
	return i - 1
}

// GetTS returns the record for key, observing tombstones: a tombstone
// record is treated as "not found" per spec.md §4.5.
func (v *Version) GetTS(key []byte) (*base.Record, error) {
	pi := v.partitionIndex(key)
	if pi < 0 {
		return nil, nil
	}
	rec, err := v.partitions[pi].Get(key)
	if err != nil || rec == nil || rec.Tombstone {
		return nil, err
	}
	return rec, nil
}

// ProbeTS reports whether key has a live (non-tombstone) record.
func (v *Version) ProbeTS(key []byte) (bool, error) {
	rec, err := v.GetTS(key)
	return rec != nil, err
}

// GetValueTS is equivalent to GetTS but documents the caller's intent to
// read only the value, matching the §4.5 contract name; remixdb's Table
// always materializes the full record so there is no separate fast path.
func (v *Version) GetValueTS(key []byte) ([]byte, bool, error) {
	rec, err := v.GetTS(key)
	if err != nil || rec == nil {
		return nil, false, err
	}
	return rec.Value, true, nil
}

// VersionIter concatenates every partition's TableIter in ascending anchor
// order, matching the teacher's concatenating_iter.go shape but specialized
// to remixdb's disjoint, non-overlapping partitions (no merging needed
// within a version, only across memtable layers — see
// internal/engine/merging_iter.go).
type VersionIter struct {
	v   *Version
	pi  int
	cur *TableIter
}

// NewIter returns a VersionIter over v.
func (v *Version) NewIter() *VersionIter {
	return &VersionIter{v: v, pi: -1}
}

// Seek positions the iterator at the first key >= target.
func (it *VersionIter) Seek(target []byte) {
	pi := it.v.partitionIndex(target)
	if pi < 0 {
		pi = 0
	}
	it.pi = pi
	if pi >= len(it.v.partitions) {
		it.cur = nil
		return
	}
	it.cur = it.v.partitions[pi].NewIter()
	it.cur.Seek(target)
	it.advancePastPartition()
}

// SeekToFirst positions the iterator at the smallest key in the version.
func (it *VersionIter) SeekToFirst() {
	if len(it.v.partitions) == 0 {
		it.pi = 0
		it.cur = nil
		return
	}
	it.pi = 0
	it.cur = it.v.partitions[0].NewIter()
	it.cur.SeekToFirst()
	it.advancePastPartition()
}

func (it *VersionIter) advancePastPartition() {
	for it.cur != nil && !it.cur.Valid() {
		it.pi++
		if it.pi >= len(it.v.partitions) {
			it.cur = nil
			return
		}
		it.cur = it.v.partitions[it.pi].NewIter()
		it.cur.SeekToFirst()
	}
}

// Valid reports whether the iterator is positioned at a record.
func (it *VersionIter) Valid() bool { return it.cur != nil && it.cur.Valid() }

// Err returns any error encountered by the underlying TableIter.
func (it *VersionIter) Err() error {
	if it.cur == nil {
		return nil
	}
	return it.cur.Err()
}

// Peek returns the current record.
func (it *VersionIter) Peek() *base.Record {
	if !it.Valid() {
		return nil
	}
	return it.cur.Peek()
}

// Next advances the iterator by one record.
func (it *VersionIter) Next() {
	if it.cur == nil {
		return
	}
	it.cur.Next()
	it.advancePastPartition()
}
