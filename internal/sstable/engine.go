package sstable

import (
	"sync/atomic"

	"github.com/Kevin-Yang1/remixdb/internal/cache"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
)

// Engine owns the on-disk partition files and the published Version chain
// for one database directory, mirroring struct msstz (original_source/sst.h)
// and the teacher's version_set.go. It does not itself decide when old
// versions are safe to free; that is internal/engine's job, coordinated
// through its qsbr.Domain, since only the caller knows which in-flight
// readers might still hold a pointer to a retired Version.
type Engine struct {
	fs   vfs.FS
	dir  string
	opts WriterOptions

	nextNumber atomic.Uint64
	current    atomic.Pointer[Version]
	stats      Stats
	cache      *cache.Cache
}

// Open loads the version pointed at by dir/HEAD, or starts a brand-new,
// empty version 0 if the directory has never been published to.
// blockCache may be nil to disable block caching.
func Open(fs vfs.FS, dir string, opts WriterOptions, blockCache *cache.Cache) (*Engine, error) {
	if err := fs.MkdirAll(dir); err != nil {
		return nil, err
	}
	e := &Engine{fs: fs, dir: dir, opts: opts, cache: blockCache}
	v, _, err := loadHeadVersion(fs, dir, &e.stats, blockCache)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = newVersion(0, nil, nil)
	}
	e.current.Store(v)
	e.nextNumber.Store(v.Number() + 1)
	return e, nil
}

// Dir returns the directory this engine's files live under.
func (e *Engine) Dir() string { return e.dir }

// Options returns the WriterOptions new partitions are written with.
func (e *Engine) Options() WriterOptions { return e.opts }

// NextNumber allocates the next monotonically increasing version/partition
// file number, matching the teacher's version_set.go nextFileNum sequencing.
func (e *Engine) NextNumber() uint64 { return e.nextNumber.Add(1) - 1 }

// CurrentVersion returns the currently published Version ("getv"), already
// Ref'd so the caller must Unref when done with it.
func (e *Engine) CurrentVersion() *Version {
	for {
		v := e.current.Load()
		v.Ref()
		if e.current.Load() == v {
			return v
		}
		v.Unref()
	}
}

// PublishVersion durably writes the descriptor for v's anchors/partitions,
// rotates HEAD/HEAD1, and swaps v in as the current version ("putv"). It
// returns the version that was previously current, still Ref'd once for the
// caller to hand off to internal/engine's qsbr-gated retirement path.
func (e *Engine) PublishVersion(entries []descriptorEntry, v *Version) (*Version, error) {
	if err := publishVersion(e.fs, e.dir, v.Number(), entries); err != nil {
		return nil, err
	}
	old := e.current.Swap(v)
	return old, nil
}

// ReclaimSuperseded removes the on-disk data/index files of old's
// partitions that are not reused by entries — i.e. every partition that
// was rewritten (Accepted) during the compaction pass that produced
// entries, since a Rejected partition's entry carries old's own basename
// forward and must not be deleted. Call only after old.Unref() reaches
// zero, so no reader can still be resolving a block read against the file
// being removed.
func (e *Engine) ReclaimSuperseded(old *Version, entries []descriptorEntry) error {
	keep := make(map[string]bool, len(entries))
	for _, en := range entries {
		keep[en.base] = true
	}
	for _, t := range old.Partitions() {
		if keep[t.Base()] {
			continue
		}
		if e.cache != nil {
			e.cache.EvictFile(t.FileID())
		}
		if err := e.fs.Remove(vfs.Join(e.dir, t.Base()+dataFileSuffix)); err != nil {
			return err
		}
		if err := e.fs.Remove(vfs.Join(e.dir, t.Base()+indexFileSuffix)); err != nil {
			return err
		}
	}
	return nil
}

// Stats exposes the cumulative write/read byte counters for this engine.
func (e *Engine) Stats() *Stats { return &e.stats }

// StatWrites reports cumulative bytes written to partition data/index files.
func (e *Engine) StatWrites() int64 { return e.stats.Writes() }

// StatReads reports cumulative bytes read from partition data files.
func (e *Engine) StatReads() int64 { return e.stats.Reads() }
