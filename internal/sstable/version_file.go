package sstable

import (
	"encoding/binary"
	"fmt"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/cache"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/cockroachdb/errors"
)

// partitionFile names the data/index file pair for partition idx of
// version number, e.g. "000012-003".
func partitionFile(number uint64, idx int) string {
	return fmt.Sprintf("%06d-%03d", number, idx)
}

// verFileName is the on-disk name of a version descriptor file, per
// spec.md §6 ("*.ver").
func verFileName(number uint64) string {
	return fmt.Sprintf("%06d.ver", number)
}

// descriptorEntry is one persisted anchor: its key, disposition, and the
// basename of the partition file pair it points at (not necessarily a file
// from this version's own number, since a rejected partition keeps
// pointing at an older version's files).
type descriptorEntry struct {
	anchor Anchor
	base   string
}

func encodeVersionFile(number uint64, entries []descriptorEntry) []byte {
	var buf []byte
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], number)
	buf = append(buf, hdr[:]...)
	buf = binary.AppendUvarint(buf, uint64(len(entries)))
	for _, e := range entries {
		buf = append(buf, byte(e.anchor.Disposition))
		buf = binary.AppendUvarint(buf, uint64(len(e.anchor.Key)))
		buf = append(buf, e.anchor.Key...)
		buf = binary.AppendUvarint(buf, uint64(len(e.base)))
		buf = append(buf, e.base...)
	}
	return buf
}

func decodeVersionFile(buf []byte) (uint64, []descriptorEntry, error) {
	if len(buf) < 8 {
		return 0, nil, errors.New("remixdb: truncated version file")
	}
	number := binary.LittleEndian.Uint64(buf[:8])
	buf = buf[8:]
	n, k := binary.Uvarint(buf)
	if k <= 0 {
		return 0, nil, errors.New("remixdb: corrupt version file count")
	}
	buf = buf[k:]
	entries := make([]descriptorEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(buf) < 1 {
			return 0, nil, errors.New("remixdb: truncated version entry")
		}
		disp := buf[0]
		buf = buf[1:]
		klen, k1 := binary.Uvarint(buf)
		if k1 <= 0 {
			return 0, nil, errors.New("remixdb: corrupt anchor key length")
		}
		buf = buf[k1:]
		key := append([]byte(nil), buf[:klen]...)
		buf = buf[klen:]
		blen, k2 := binary.Uvarint(buf)
		if k2 <= 0 {
			return 0, nil, errors.New("remixdb: corrupt base length")
		}
		buf = buf[k2:]
		baseName := string(buf[:blen])
		buf = buf[blen:]
		entries = append(entries, descriptorEntry{anchor: Anchor{Key: key, Disposition: base.Disposition(disp)}, base: baseName})
	}
	return number, entries, nil
}

// publishVersion writes the version descriptor, atomically renames it into
// place, and repoints HEAD -> new, HEAD1 -> old, mirroring spec.md §3/§6's
// "a version is published by writing a version file atomically... the live
// version is named by a HEAD symlink" and the teacher's version_set.go
// temp+rename publish pattern.
func publishVersion(fs vfs.FS, dir string, number uint64, entries []descriptorEntry) error {
	name := vfs.Join(dir, verFileName(number))
	if err := vfs.CreateAtomic(fs, name, encodeVersionFile(number, entries)); err != nil {
		return err
	}
	head := vfs.Join(dir, "HEAD")
	head1 := vfs.Join(dir, "HEAD1")
	if target, err := fs.Readlink(head); err == nil {
		_ = fs.Symlink(target, head1)
	}
	return fs.Symlink(verFileName(number), head)
}

// loadHeadVersion opens the version pointed at by dir/HEAD, or returns
// (nil, nil) if the database is brand new (no HEAD yet).
func loadHeadVersion(fs vfs.FS, dir string, stats *Stats, blockCache *cache.Cache) (*Version, []descriptorEntry, error) {
	head := vfs.Join(dir, "HEAD")
	if !fs.Exists(head) {
		return nil, nil, nil
	}
	target, err := fs.Readlink(head)
	if err != nil {
		return nil, nil, err
	}
	f, err := fs.OpenForRead(vfs.Join(dir, target))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	buf := make([]byte, st.Size())
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, nil, err
	}
	number, entries, err := decodeVersionFile(buf)
	if err != nil {
		return nil, nil, err
	}
	partitions := make([]*Table, len(entries))
	anchors := make([]Anchor, len(entries))
	for i, e := range entries {
		t, err := OpenTable(fs, vfs.Join(dir, e.base+dataFileSuffix), vfs.Join(dir, e.base+indexFileSuffix), e.base, stats, blockCache)
		if err != nil {
			return nil, nil, err
		}
		partitions[i] = t
		anchors[i] = e.anchor
	}
	return newVersion(number, partitions, anchors), entries, nil
}

