package memtable

import (
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	m := New()
	_, ok := m.Get([]byte("k"))
	require.False(t, ok)

	m.Put(base.NewRecord([]byte("k"), []byte("v1"), false))
	rec, ok := m.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v1"), rec.Value)

	m.Put(base.NewRecord([]byte("k"), []byte("v2"), false))
	rec, ok = m.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v2"), rec.Value)
}

func TestProbeIgnoresTombstone(t *testing.T) {
	m := New()
	m.Put(base.NewRecord([]byte("k"), []byte("v"), false))
	require.True(t, m.Probe([]byte("k")))

	m.Del(base.NewRecord([]byte("k"), nil, true))
	require.False(t, m.Probe([]byte("k")))
}

func TestMergeSeesPriorValueAndCanDecline(t *testing.T) {
	m := New()
	present := m.Merge([]byte("k"), func(old *base.Record) *base.Record {
		require.Nil(t, old)
		return base.NewRecord([]byte("k"), []byte("1"), false)
	})
	require.False(t, present)

	present = m.Merge([]byte("k"), func(old *base.Record) *base.Record {
		require.NotNil(t, old)
		require.Equal(t, []byte("1"), old.Value)
		return nil // decline
	})
	require.True(t, present)

	rec, ok := m.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("1"), rec.Value) // unchanged
}

func TestApproxSizeTracksUpserts(t *testing.T) {
	m := New()
	require.Equal(t, int64(0), m.ApproxSize())

	rec1 := base.NewRecord([]byte("k"), []byte("abc"), false)
	m.Put(rec1)
	require.Equal(t, int64(rec1.Size()), m.ApproxSize())

	rec2 := base.NewRecord([]byte("k"), []byte("abcdef"), false)
	m.Put(rec2)
	require.Equal(t, int64(rec2.Size()), m.ApproxSize())
}

func TestIteratorAscendingOrder(t *testing.T) {
	m := New()
	for _, k := range []string{"c", "a", "b"} {
		m.Put(base.NewRecord([]byte(k), []byte(k), false))
	}

	it := m.NewIter()
	it.SeekToFirst()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Peek().Key))
		it.Skip1()
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestCleanEmptiesForReuse(t *testing.T) {
	m := New()
	m.Put(base.NewRecord([]byte("k"), []byte("v"), false))
	require.Equal(t, int64(1), m.ApproxCount())

	m.Clean()
	require.Equal(t, int64(0), m.ApproxCount())
	_, ok := m.Get([]byte("k"))
	require.False(t, ok)
}
