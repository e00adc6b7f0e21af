package sstable

import (
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestOpenFreshDirectoryStartsAtVersionZero(t *testing.T) {
	e := openEngine(t)
	v := e.CurrentVersion()
	defer v.Unref()
	require.Equal(t, uint64(0), v.Number())
	require.Empty(t, v.Partitions())
}

func TestPublishVersionSurvivesReopen(t *testing.T) {
	fs := vfs.NewMem()
	e, err := Open(fs, "db", WriterOptions{}, nil)
	require.NoError(t, err)

	seed := []*base.Record{rec("a", "1"), rec("b", "2")}
	result, err := e.Compact(e.CurrentVersion(), seed, 1, 1, 0)
	require.NoError(t, err)
	_, err = e.PublishVersion(result.Entries, result.Version)
	require.NoError(t, err)

	e2, err := Open(fs, "db", WriterOptions{}, nil)
	require.NoError(t, err)
	v2 := e2.CurrentVersion()
	defer v2.Unref()
	require.Equal(t, result.Version.Number(), v2.Number())

	val, ok, err := v2.GetValueTS([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), val)
}

func TestStatsAccumulateAcrossWritesAndReads(t *testing.T) {
	e := openEngine(t)
	require.Equal(t, int64(0), e.StatWrites())

	seed := []*base.Record{rec("a", "1"), rec("b", "2")}
	result, err := e.Compact(e.CurrentVersion(), seed, 1, 1, 0)
	require.NoError(t, err)
	require.Greater(t, e.StatWrites(), int64(0))

	_, _, err = result.Version.GetValueTS([]byte("a"))
	require.NoError(t, err)
	require.Greater(t, e.StatReads(), int64(0))
}

func TestNextNumberIsMonotonicAndGapless(t *testing.T) {
	e := openEngine(t)
	a := e.NextNumber()
	b := e.NextNumber()
	c := e.NextNumber()
	require.Equal(t, a+1, b)
	require.Equal(t, b+1, c)
}
