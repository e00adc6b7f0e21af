package sstable

import (
	"bytes"
	"sort"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/cache"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/cespare/xxhash/v2"
)

// Table is one immutable partition: a sorted, blocked, checksummed run of
// records backed by a .sstx/.ssty file pair.
type Table struct {
	fs        vfs.FS
	dataPath  string
	base      string
	index     []indexEntry
	tags      []uint32
	opts      WriterOptions
	firstKey  []byte
	lastKey   []byte
	size      int64
	stats     *Stats
	cache     *cache.Cache
	fileID    uint64
}

// Base returns the partition's file basename (without directory or
// .sstx/.ssty suffix), used when republishing a rejected partition's
// unchanged files under a new version descriptor.
func (t *Table) Base() string { return t.base }

// FileID returns the block-cache file identity used to key this table's
// cached blocks, so a superseded table's entries can be evicted by name.
func (t *Table) FileID() uint64 { return t.fileID }

// OpenTable opens an existing partition given its data/index paths and the
// basename those paths were built from. stats and blockCache may both be
// nil, in which case read accounting and block caching are skipped.
func OpenTable(fs vfs.FS, dataPath, indexPath, base string, stats *Stats, blockCache *cache.Cache) (*Table, error) {
	idxFile, err := fs.OpenForRead(indexPath)
	if err != nil {
		return nil, err
	}
	defer idxFile.Close()
	st, err := idxFile.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, st.Size())
	if _, err := idxFile.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	entries, tags, opts, err := decodeIndex(buf)
	if err != nil {
		return nil, err
	}
	t := &Table{
		fs: fs, dataPath: dataPath, base: base, index: entries, tags: tags,
		opts: opts, stats: stats, cache: blockCache, fileID: xxhash.Sum64String(dataPath),
	}
	if len(entries) > 0 {
		t.firstKey = entries[0].firstKey
		last := entries[len(entries)-1]
		t.size = last.offset + last.length
	}
	if dataSt, err := statFile(fs, dataPath); err == nil {
		t.size = dataSt
	}
	return t, nil
}

func statFile(fs vfs.FS, path string) (int64, error) {
	f, err := fs.OpenForRead(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Size returns the on-disk size of the data file.
func (t *Table) Size() int64 { return t.size }

// FirstKey returns the smallest key in the table.
func (t *Table) FirstKey() []byte { return t.firstKey }

// blockIndexFor returns the index of the block that may contain key (the
// last block whose firstKey <= key), or -1 if key precedes every block.
func (t *Table) blockIndexFor(key []byte) int {
	i := sort.Search(len(t.index), func(i int) bool {
		return bytes.Compare(t.index[i].firstKey, key) > 0
	})
	return i - 1
}

func (t *Table) tagRangeFor(blockIdx int) []uint32 {
	if t.tags == nil {
		return nil
	}
	start := 0
	for i := 0; i < blockIdx; i++ {
		start += t.index[i].count
	}
	return t.tags[start : start+t.index[blockIdx].count]
}

func (t *Table) maybeHasTag(blockIdx int, hash32 uint32) bool {
	rng := t.tagRangeFor(blockIdx)
	if rng == nil {
		return true // no tag array: caller must scan the block
	}
	for _, tag := range rng {
		if tag == hash32 {
			return true
		}
	}
	return false
}

func (t *Table) readBlock(blockIdx int) ([]*base.Record, error) {
	e := t.index[blockIdx]
	ck := cache.Key{File: t.fileID, Offset: e.offset}
	if t.cache != nil {
		if raw, ok := t.cache.Get(ck); ok {
			return decodeEntries(raw)
		}
	}
	f, err := t.fs.OpenForRead(t.dataPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, e.length)
	if _, err := f.ReadAt(buf, e.offset); err != nil {
		return nil, err
	}
	t.stats.addRead(e.length)
	raw, err := decompress(buf)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Set(ck, raw)
	}
	return decodeEntries(raw)
}

// Get returns the record for key, or nil if not present. It returns the
// record as stored, including a tombstone if that is what is present; the
// caller (Version) is responsible for tombstone semantics.
func (t *Table) Get(key []byte) (*base.Record, error) {
	bi := t.blockIndexFor(key)
	if bi < 0 {
		return nil, nil
	}
	if t.opts.Tags && !t.maybeHasTag(bi, uint32(xxhash.Sum64(key))) {
		return nil, nil
	}
	recs, err := t.readBlock(bi)
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(recs), func(i int) bool { return bytes.Compare(recs[i].Key, key) >= 0 })
	if i < len(recs) && bytes.Equal(recs[i].Key, key) {
		return recs[i], nil
	}
	return nil, nil
}

// NewIter returns an iterator over every record in the table in ascending
// key order.
func (t *Table) NewIter() *TableIter {
	return &TableIter{t: t, blockIdx: -1}
}

// TableIter iterates a single Table's records in order.
type TableIter struct {
	t        *Table
	blockIdx int
	recs     []*base.Record
	pos      int
	err      error
}

// Seek positions the iterator at the first key >= target.
func (it *TableIter) Seek(target []byte) {
	bi := it.t.blockIndexFor(target)
	if bi < 0 {
		bi = 0
	}
	if bi >= len(it.t.index) {
		it.blockIdx = len(it.t.index)
		it.recs = nil
		return
	}
	it.loadBlock(bi)
	it.pos = sort.Search(len(it.recs), func(i int) bool { return bytes.Compare(it.recs[i].Key, target) >= 0 })
	it.advancePastBlockEnd()
}

// SeekToFirst positions the iterator at the smallest key.
func (it *TableIter) SeekToFirst() {
	if len(it.t.index) == 0 {
		it.blockIdx = 0
		it.recs = nil
		return
	}
	it.loadBlock(0)
	it.pos = 0
}

func (it *TableIter) loadBlock(bi int) {
	it.blockIdx = bi
	recs, err := it.t.readBlock(bi)
	if err != nil {
		it.err = err
		it.recs = nil
		return
	}
	it.recs = recs
	it.pos = 0
}

func (it *TableIter) advancePastBlockEnd() {
	for it.pos >= len(it.recs) && it.blockIdx+1 < len(it.t.index) {
		it.loadBlock(it.blockIdx + 1)
	}
}

// Valid reports whether the iterator is positioned at a record.
func (it *TableIter) Valid() bool { return it.err == nil && it.pos < len(it.recs) }

// Err returns any error encountered while reading blocks.
func (it *TableIter) Err() error { return it.err }

// Peek returns the current record.
func (it *TableIter) Peek() *base.Record {
	if !it.Valid() {
		return nil
	}
	return it.recs[it.pos]
}

// Next advances the iterator by one record.
func (it *TableIter) Next() {
	if !it.Valid() {
		return
	}
	it.pos++
	it.advancePastBlockEnd()
}
