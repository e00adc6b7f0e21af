package sstable

import (
	"fmt"
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, fs vfs.FS, dataPath, indexPath string, opts WriterOptions, recs []*base.Record) *Table {
	t.Helper()
	w, err := NewWriter(fs, dataPath, opts, nil)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Add(r))
	}
	_, err = w.Finish(fs, indexPath)
	require.NoError(t, err)
	tbl, err := OpenTable(fs, dataPath, indexPath, "base", nil, nil)
	require.NoError(t, err)
	return tbl
}

func TestWriterFinishThenGetEachCodec(t *testing.T) {
	for name, codec := range map[string]byte{"none": CodecNone, "snappy": CodecSnappy, "zstd": CodecZstd} {
		t.Run(name, func(t *testing.T) {
			fs := vfs.NewMem()
			recs := []*base.Record{
				rec("a", "1"), rec("b", "2"), rec("c", "3"),
			}
			tbl := writeTable(t, fs, "db/p.sstx", "db/p.ssty", WriterOptions{Codec: codec}, recs)

			got, err := tbl.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), got.Value)

			got, err = tbl.Get([]byte("zzz"))
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestWriterSpansMultipleBlocks(t *testing.T) {
	fs := vfs.NewMem()
	var recs []*base.Record
	// Force several blockTargetSize-crossing blocks.
	big := make([]byte, 4096)
	for i := 0; i < 20; i++ {
		recs = append(recs, rec(fmt.Sprintf("k%04d", i), string(big)))
	}
	tbl := writeTable(t, fs, "db/p.sstx", "db/p.ssty", WriterOptions{}, recs)
	require.Greater(t, len(tbl.index), 1)

	it := tbl.NewIter()
	it.SeekToFirst()
	n := 0
	for it.Valid() {
		want := fmt.Sprintf("k%04d", n)
		require.Equal(t, want, string(it.Peek().Key))
		it.Next()
		n++
	}
	require.Equal(t, 20, n)
}

func TestTableIterSeekMidTable(t *testing.T) {
	fs := vfs.NewMem()
	recs := []*base.Record{rec("a", "1"), rec("b", "2"), rec("c", "3"), rec("d", "4")}
	tbl := writeTable(t, fs, "db/p.sstx", "db/p.ssty", WriterOptions{}, recs)

	it := tbl.NewIter()
	it.Seek([]byte("bb"))
	require.True(t, it.Valid())
	require.Equal(t, []byte("c"), it.Peek().Key)
}

func TestWriterWithTagsAccelerates(t *testing.T) {
	fs := vfs.NewMem()
	recs := []*base.Record{rec("a", "1"), rec("m", "2"), rec("z", "3")}
	tbl := writeTable(t, fs, "db/p.sstx", "db/p.ssty", WriterOptions{Tags: true}, recs)

	got, err := tbl.Get([]byte("m"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got.Value)

	got, err = tbl.Get([]byte("missing"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWriterEmptyTableHasNoRecords(t *testing.T) {
	fs := vfs.NewMem()
	w, err := NewWriter(fs, "db/p.sstx", WriterOptions{}, nil)
	require.NoError(t, err)
	require.True(t, w.Empty())
	_, err = w.Finish(fs, "db/p.ssty")
	require.NoError(t, err)

	tbl, err := OpenTable(fs, "db/p.sstx", "db/p.ssty", "base", nil, nil)
	require.NoError(t, err)
	it := tbl.NewIter()
	it.SeekToFirst()
	require.False(t, it.Valid())
}

func TestTableGetIncludesTombstones(t *testing.T) {
	fs := vfs.NewMem()
	recs := []*base.Record{rec("a", "1"), base.NewRecord([]byte("b"), nil, true)}
	tbl := writeTable(t, fs, "db/p.sstx", "db/p.ssty", WriterOptions{}, recs)

	got, err := tbl.Get([]byte("b"))
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.Tombstone)
}
