package sstable

import (
	"sort"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"golang.org/x/sync/errgroup"
)

// CompactResult summarizes one compaction pass: the newly published
// version and its descriptor entries (handed to Engine.PublishVersion),
// plus any immutable-memtable records that landed in a rejected partition
// and must be reinserted into the write memtable, per spec.md §4.3 step 8's
// "a rejected partition's IMT-resident keys are reinserted into the
// memtable rather than rewritten."
type CompactResult struct {
	Version  *Version
	Entries  []descriptorEntry
	Reinsert []*base.Record
}

// partitionWork is one output partition of a compaction pass: either a
// rewrite of old merged with imt[imtFrom:imtTo], or a straight carry-over of
// old's existing files with those same records handed back for reinsertion.
type partitionWork struct {
	anchor  []byte
	disp    base.Disposition
	base    string // reused basename, set only when disp == base.Rejected
	old     *Table
	imtFrom int
	imtTo   int
}

// Compact runs one compaction pass against old (the currently published
// version) and imt (every record currently resident in the immutable
// memtable, in ascending key order), producing a new Version. A partition
// whose overlap with imt is zero is rejected for free. Among the remaining
// partitions, Compact greedily rejects the smallest-overlap ones first,
// stopping once the cumulative rejected overlap would exceed
// maxRejectBytes; everything else is rewritten merged with its imt slice.
// maxRejectBytes == 0 disables rejection outright, matching spec.md §8's
// "compaction with max_reject = 0 never rejects any partition."
//
// This is adapted from the teacher's compaction.go picker, collapsed from
// pebble's multi-level score-based picker down to remixdb's single-level,
// per-partition accept/reject decision (see original_source/xdb.c's
// compaction pass for the original's rejection policy).
func (e *Engine) Compact(old *Version, imt []*base.Record, nrWorkers, coPerWorker int, maxRejectBytes int64) (*CompactResult, error) {
	works, err := planCompaction(old, imt, maxRejectBytes)
	if err != nil {
		return nil, err
	}
	if len(works) == 0 {
		return &CompactResult{Version: old}, nil
	}

	entries := make([]descriptorEntry, len(works))
	reinsert := make([][]*base.Record, len(works))

	concurrency := nrWorkers * coPerWorker
	if concurrency <= 0 {
		concurrency = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i := range works {
		i := i
		w := works[i]
		if w.disp == base.Rejected {
			entries[i] = descriptorEntry{anchor: Anchor{Key: w.anchor, Disposition: base.Rejected}, base: w.base}
			reinsert[i] = append([]*base.Record(nil), imt[w.imtFrom:w.imtTo]...)
			continue
		}
		g.Go(func() error {
			number := e.NextNumber()
			basename := partitionFile(number, i)
			dataPath := vfs.Join(e.dir, basename+dataFileSuffix)
			indexPath := vfs.Join(e.dir, basename+indexFileSuffix)
			wr, err := NewWriter(e.fs, dataPath, e.opts, &e.stats)
			if err != nil {
				return err
			}
			if err := mergeInto(wr, w.old, imt[w.imtFrom:w.imtTo]); err != nil {
				return err
			}
			if _, err := wr.Finish(e.fs, indexPath); err != nil {
				return err
			}
			entries[i] = descriptorEntry{anchor: Anchor{Key: w.anchor, Disposition: base.Accepted}, base: basename}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	partitions := make([]*Table, len(entries))
	anchors := make([]Anchor, len(entries))
	for i, en := range entries {
		t, err := OpenTable(e.fs, vfs.Join(e.dir, en.base+dataFileSuffix), vfs.Join(e.dir, en.base+indexFileSuffix), en.base, &e.stats, e.cache)
		if err != nil {
			return nil, err
		}
		partitions[i] = t
		anchors[i] = en.anchor
	}
	v := newVersion(e.NextNumber(), partitions, anchors)

	var allReinsert []*base.Record
	for _, r := range reinsert {
		allReinsert = append(allReinsert, r...)
	}
	return &CompactResult{Version: v, Entries: entries, Reinsert: allReinsert}, nil
}

// planCompaction assigns every imt record to the old partition whose anchor
// range contains it (records preceding the first anchor fall into
// partition 0), then decides each partition's disposition.
func planCompaction(old *Version, imt []*base.Record, maxRejectBytes int64) ([]partitionWork, error) {
	if old == nil || len(old.anchors) == 0 {
		if len(imt) == 0 {
			return nil, nil
		}
		return []partitionWork{{anchor: imt[0].Key, disp: base.Accepted, imtFrom: 0, imtTo: len(imt)}}, nil
	}

	n := len(old.anchors)
	works := make([]partitionWork, n)
	for i := range old.anchors {
		works[i] = partitionWork{anchor: old.anchors[i].Key, old: old.partitions[i], imtFrom: -1, imtTo: -1}
	}

	pos := 0
	for idx, rec := range imt {
		for pos+1 < n && Compare(old.anchors[pos+1].Key, rec.Key) <= 0 {
			pos++
		}
		if works[pos].imtFrom < 0 {
			works[pos].imtFrom = idx
		}
		works[pos].imtTo = idx + 1
	}
	for i := range works {
		if works[i].imtFrom < 0 {
			works[i].imtFrom, works[i].imtTo = 0, 0
		}
	}

	if maxRejectBytes > 0 {
		type overlap struct {
			idx   int
			bytes int64
		}
		var candidates []overlap
		for i, w := range works {
			ob := overlapBytes(imt[w.imtFrom:w.imtTo])
			if ob == 0 {
				works[i].disp = base.Rejected
				works[i].base = old.partitions[i].Base()
				continue
			}
			candidates = append(candidates, overlap{idx: i, bytes: ob})
		}

		sort.Slice(candidates, func(a, b int) bool { return candidates[a].bytes < candidates[b].bytes })
		var cum int64
		for _, c := range candidates {
			if cum+c.bytes > maxRejectBytes {
				break
			}
			cum += c.bytes
			works[c.idx].disp = base.Rejected
			works[c.idx].base = old.partitions[c.idx].Base()
		}
	}

	for i := range works {
		if works[i].disp != base.Rejected {
			works[i].disp = base.Accepted
		}
	}
	return works, nil
}

func overlapBytes(recs []*base.Record) int64 {
	var n int64
	for _, r := range recs {
		n += int64(len(r.Key) + len(r.Value))
	}
	return n
}

// mergeInto writes the sorted union of old's records and imtRecs to w,
// imtRecs winning on key collision since they are newer, and tombstones
// dropped entirely since remixdb has no level below this one for a
// tombstone to still be shadowing.
func mergeInto(w *Writer, old *Table, imtRecs []*base.Record) error {
	var oldIter *TableIter
	if old != nil {
		oldIter = old.NewIter()
		oldIter.SeekToFirst()
	}
	i := 0
	for {
		var oldRec *base.Record
		if oldIter != nil && oldIter.Valid() {
			oldRec = oldIter.Peek()
		}
		var newRec *base.Record
		if i < len(imtRecs) {
			newRec = imtRecs[i]
		}
		switch {
		case oldRec == nil && newRec == nil:
			return nil
		case oldRec == nil:
			if !newRec.Tombstone {
				if err := w.Add(newRec); err != nil {
					return err
				}
			}
			i++
		case newRec == nil:
			if !oldRec.Tombstone {
				if err := w.Add(oldRec); err != nil {
					return err
				}
			}
			oldIter.Next()
		default:
			switch c := Compare(oldRec.Key, newRec.Key); {
			case c < 0:
				if !oldRec.Tombstone {
					if err := w.Add(oldRec); err != nil {
						return err
					}
				}
				oldIter.Next()
			case c > 0:
				if !newRec.Tombstone {
					if err := w.Add(newRec); err != nil {
						return err
					}
				}
				i++
			default:
				if !newRec.Tombstone {
					if err := w.Add(newRec); err != nil {
						return err
					}
				}
				oldIter.Next()
				i++
			}
		}
	}
}
