package sstable

import (
	"encoding/binary"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// WriterOptions controls block compression and the optional REMIX
// point-lookup hash-tag array, mirroring spec.md §6's ckeys/tags options.
type WriterOptions struct {
	Codec byte // codecNone, codecSnappy, or codecZstd
	Tags  bool
}

// indexEntry describes one data block in the index file.
type indexEntry struct {
	firstKey []byte
	offset   int64
	length   int64
	count    int
}

// Writer builds one partition's .sstx/.ssty file pair from records
// delivered to Add in strictly ascending key order.
type Writer struct {
	opts WriterOptions

	dataFile vfs.File
	dataOff  int64

	pending []*base.Record
	pendingSize int

	index []indexEntry
	tags  []uint32 // REMIX per-key hash tags, parallel across all blocks

	firstKey, lastKey []byte
	count             int

	stats *Stats
}

// NewWriter opens dataPath for writing and returns a Writer for one
// partition. stats may be nil, in which case write accounting is skipped.
func NewWriter(fs vfs.FS, dataPath string, opts WriterOptions, stats *Stats) (*Writer, error) {
	f, err := fs.Create(dataPath)
	if err != nil {
		return nil, err
	}
	return &Writer{opts: opts, dataFile: f, stats: stats}, nil
}

// Add appends rec, which must sort after every previously added record.
func (w *Writer) Add(rec *base.Record) error {
	if w.firstKey == nil {
		w.firstKey = append([]byte(nil), rec.Key...)
	}
	w.lastKey = append([]byte(nil), rec.Key...)
	w.count++
	if w.opts.Tags {
		w.tags = append(w.tags, uint32(xxhash.Sum64(rec.Key)))
	}
	w.pending = append(w.pending, rec)
	w.pendingSize += len(rec.Key) + len(rec.Value)
	if w.pendingSize >= blockTargetSize {
		return w.flushBlock()
	}
	return nil
}

func (w *Writer) flushBlock() error {
	if len(w.pending) == 0 {
		return nil
	}
	raw := encodeEntries(w.pending)
	block := compress(raw, w.opts.Codec)
	if _, err := w.dataFile.Write(block); err != nil {
		return err
	}
	w.index = append(w.index, indexEntry{
		firstKey: append([]byte(nil), w.pending[0].Key...),
		offset:   w.dataOff,
		length:   int64(len(block)),
		count:    len(w.pending),
	})
	w.dataOff += int64(len(block))
	w.pending = w.pending[:0]
	w.pendingSize = 0
	return nil
}

// Empty reports whether no records were ever added.
func (w *Writer) Empty() bool { return w.count == 0 }

// FirstKey/LastKey return the smallest/largest key written so far.
func (w *Writer) FirstKey() []byte { return w.firstKey }
func (w *Writer) LastKey() []byte  { return w.lastKey }
func (w *Writer) Count() int       { return w.count }

// Finish flushes any pending block, writes the .ssty index file at
// indexPath, and closes the data file. It returns the total on-disk size
// of both files.
func (w *Writer) Finish(fs vfs.FS, indexPath string) (size int64, err error) {
	if err := w.flushBlock(); err != nil {
		return 0, err
	}
	if err := w.dataFile.Sync(); err != nil {
		return 0, err
	}
	if err := w.dataFile.Close(); err != nil {
		return 0, err
	}

	idx, err := fs.Create(indexPath)
	if err != nil {
		return 0, err
	}
	buf := encodeIndex(w.index, w.tags, w.opts)
	if _, err := idx.Write(buf); err != nil {
		return 0, err
	}
	if err := idx.Sync(); err != nil {
		return 0, err
	}
	if err := idx.Close(); err != nil {
		return 0, err
	}
	size = w.dataOff + int64(len(buf))
	w.stats.addWrite(size)
	return size, nil
}

func encodeIndex(entries []indexEntry, tags []uint32, opts WriterOptions) []byte {
	var buf []byte
	buf = append(buf, opts.Codec)
	if opts.Tags {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.AppendUvarint(buf, uint64(len(entries)))
	for _, e := range entries {
		buf = binary.AppendUvarint(buf, uint64(len(e.firstKey)))
		buf = append(buf, e.firstKey...)
		buf = binary.AppendVarint(buf, e.offset)
		buf = binary.AppendVarint(buf, e.length)
		buf = binary.AppendUvarint(buf, uint64(e.count))
	}
	if opts.Tags {
		buf = binary.AppendUvarint(buf, uint64(len(tags)))
		for _, t := range tags {
			var tb [4]byte
			binary.LittleEndian.PutUint32(tb[:], t)
			buf = append(buf, tb[:]...)
		}
	}
	return buf
}

func decodeIndex(buf []byte) ([]indexEntry, []uint32, WriterOptions, error) {
	if len(buf) < 2 {
		return nil, nil, WriterOptions{}, errors.New("remixdb: truncated index file")
	}
	opts := WriterOptions{Codec: buf[0], Tags: buf[1] != 0}
	buf = buf[2:]
	n, k := binary.Uvarint(buf)
	if k <= 0 {
		return nil, nil, opts, errors.New("remixdb: corrupt index count")
	}
	buf = buf[k:]
	entries := make([]indexEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		klen, k1 := binary.Uvarint(buf)
		if k1 <= 0 {
			return nil, nil, opts, errors.New("remixdb: corrupt index entry")
		}
		buf = buf[k1:]
		key := append([]byte(nil), buf[:klen]...)
		buf = buf[klen:]
		off, k2 := binary.Varint(buf)
		if k2 <= 0 {
			return nil, nil, opts, errors.New("remixdb: corrupt index offset")
		}
		buf = buf[k2:]
		length, k3 := binary.Varint(buf)
		if k3 <= 0 {
			return nil, nil, opts, errors.New("remixdb: corrupt index length")
		}
		buf = buf[k3:]
		cnt, k4 := binary.Uvarint(buf)
		if k4 <= 0 {
			return nil, nil, opts, errors.New("remixdb: corrupt index entry count")
		}
		buf = buf[k4:]
		entries = append(entries, indexEntry{firstKey: key, offset: off, length: length, count: int(cnt)})
	}
	var tags []uint32
	if opts.Tags {
		tn, k5 := binary.Uvarint(buf)
		if k5 <= 0 {
			return nil, nil, opts, errors.New("remixdb: corrupt tag count")
		}
		buf = buf[k5:]
		tags = make([]uint32, 0, tn)
		for i := uint64(0); i < tn; i++ {
			if len(buf) < 4 {
				return nil, nil, opts, errors.New("remixdb: truncated tag array")
			}
			tags = append(tags, binary.LittleEndian.Uint32(buf[:4]))
			buf = buf[4:]
		}
	}
	return entries, tags, opts, nil
}
