package sstable

import (
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVersionFileRoundTrip(t *testing.T) {
	entries := []descriptorEntry{
		{anchor: Anchor{Key: []byte("a"), Disposition: base.Unset}, base: partitionFile(1, 0)},
		{anchor: Anchor{Key: []byte("m"), Disposition: base.Unset}, base: partitionFile(1, 1)},
	}
	buf := encodeVersionFile(7, entries)
	number, got, err := decodeVersionFile(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(7), number)
	require.Len(t, got, 2)
	require.Equal(t, "a", string(got[0].anchor.Key))
	require.Equal(t, partitionFile(1, 0), got[0].base)
	require.Equal(t, "m", string(got[1].anchor.Key))
	require.Equal(t, partitionFile(1, 1), got[1].base)
}

func TestDecodeVersionFileRejectsTruncatedHeader(t *testing.T) {
	_, _, err := decodeVersionFile([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestEncodeDecodeVersionFileEmptyEntries(t *testing.T) {
	buf := encodeVersionFile(1, nil)
	number, got, err := decodeVersionFile(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(1), number)
	require.Len(t, got, 0)
}

func TestLoadHeadVersionOnFreshDirectoryReturnsNil(t *testing.T) {
	fs := vfs.NewMem()
	v, entries, err := loadHeadVersion(fs, "db", nil, nil)
	require.NoError(t, err)
	require.Nil(t, v)
	require.Nil(t, entries)
}

func TestPublishVersionRotatesHeadAndHead1(t *testing.T) {
	fs := vfs.NewMem()
	require.NoError(t, fs.MkdirAll("db"))

	w1, err := NewWriter(fs, vfs.Join("db", partitionFile(1, 0)+dataFileSuffix), WriterOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, w1.Add(rec("a", "1")))
	_, err = w1.Finish(fs, vfs.Join("db", partitionFile(1, 0)+indexFileSuffix))
	require.NoError(t, err)

	entries1 := []descriptorEntry{{anchor: Anchor{Key: []byte("a"), Disposition: base.Unset}, base: partitionFile(1, 0)}}
	require.NoError(t, publishVersion(fs, "db", 1, entries1))

	v1, loaded1, err := loadHeadVersion(fs, "db", nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v1.Number())
	require.Len(t, loaded1, 1)

	w2, err := NewWriter(fs, vfs.Join("db", partitionFile(2, 0)+dataFileSuffix), WriterOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, w2.Add(rec("b", "2")))
	_, err = w2.Finish(fs, vfs.Join("db", partitionFile(2, 0)+indexFileSuffix))
	require.NoError(t, err)

	entries2 := []descriptorEntry{{anchor: Anchor{Key: []byte("b"), Disposition: base.Unset}, base: partitionFile(2, 0)}}
	require.NoError(t, publishVersion(fs, "db", 2, entries2))

	target, err := fs.Readlink(vfs.Join("db", "HEAD"))
	require.NoError(t, err)
	require.Equal(t, verFileName(2), target)

	target1, err := fs.Readlink(vfs.Join("db", "HEAD1"))
	require.NoError(t, err)
	require.Equal(t, verFileName(1), target1)

	v2, loaded2, err := loadHeadVersion(fs, "db", nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), v2.Number())
	require.Len(t, loaded2, 1)
}
