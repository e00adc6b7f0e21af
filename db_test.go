package remixdb

import (
	"fmt"
	"testing"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/vfs"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T, opts Options) (*DB, vfs.FS) {
	t.Helper()
	fs := vfs.NewMem()
	opts.FS = fs
	db, err := Open("db", opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db, fs
}

func TestPutGetDel(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	_, err := r.Get([]byte("missing"))
	require.ErrorIs(t, err, base.ErrNotFound)

	require.NoError(t, r.Put([]byte("k1"), []byte("v1")))
	v, err := r.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	found, err := r.Probe([]byte("k1"))
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, r.Del([]byte("k1")))
	_, err = r.Get([]byte("k1"))
	require.ErrorIs(t, err, base.ErrNotFound)

	found, err = r.Probe([]byte("k1"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestPutOverwrite(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	require.NoError(t, r.Put([]byte("k"), []byte("v1")))
	require.NoError(t, r.Put([]byte("k"), []byte("v2")))
	v, err := r.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestMergeSeedsFromMissingKey(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	require.NoError(t, r.Merge([]byte("counter"), func(old []byte, found bool) ([]byte, bool) {
		require.False(t, found)
		return []byte("1"), false
	}))
	v, err := r.Get([]byte("counter"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, r.Merge([]byte("counter"), func(old []byte, found bool) ([]byte, bool) {
		require.True(t, found)
		require.Equal(t, []byte("1"), old)
		return []byte("2"), false
	}))
	v, err = r.Get([]byte("counter"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), v)
}

func TestMergeCanDelete(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	require.NoError(t, r.Put([]byte("k"), []byte("v")))
	require.NoError(t, r.Merge([]byte("k"), func(old []byte, found bool) ([]byte, bool) {
		return nil, true
	}))
	_, err := r.Get([]byte("k"))
	require.ErrorIs(t, err, base.ErrNotFound)
}

func TestIteratorOrderAndRank(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	keys := []string{"a", "c", "e", "g"}
	for _, k := range keys {
		require.NoError(t, r.Put([]byte(k), []byte(k+"-old")))
	}
	require.NoError(t, r.Put([]byte("c"), []byte("c-new")))

	it := r.NewIterator()
	defer it.Destroy()
	it.SeekToFirst()

	var got []string
	for it.Valid() {
		got = append(got, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"a=a-old", "c=c-new", "e=e-old", "g=g-old"}, got)
}

func TestIteratorSkipsTombstones(t *testing.T) {
	db, _ := openTest(t, Options{})
	r := db.NewRef()
	defer r.Close()

	require.NoError(t, r.Put([]byte("a"), []byte("1")))
	require.NoError(t, r.Put([]byte("b"), []byte("2")))
	require.NoError(t, r.Del([]byte("a")))

	it := r.NewIterator()
	defer it.Destroy()
	it.SeekToFirst()
	require.True(t, it.Valid())
	require.Equal(t, []byte("b"), it.Key())
	it.Next()
	require.False(t, it.Valid())
}

func TestSyncAndReopenReplaysWAL(t *testing.T) {
	// Opened directly rather than through openTest: this test closes db
	// itself, and a second Close returns ErrClosed.
	fs := vfs.NewMem()
	db, err := Open("db", Options{FS: fs})
	require.NoError(t, err)
	r := db.NewRef()
	require.NoError(t, r.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, r.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, r.Sync())
	r.Close()
	require.NoError(t, db.Close())

	db2, err := Open("db", Options{FS: fs})
	require.NoError(t, err)
	defer db2.Close()

	r2 := db2.NewRef()
	defer r2.Close()
	v, err := r2.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
	v, err = r2.Get([]byte("k2"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestCrashDropsUnsyncedWrites(t *testing.T) {
	fs := vfs.NewMem()
	db, err := Open("db", Options{FS: fs})
	require.NoError(t, err)

	r := db.NewRef()
	require.NoError(t, r.Put([]byte("synced"), []byte("1")))
	require.NoError(t, r.Sync())
	require.NoError(t, r.Put([]byte("unsynced"), []byte("2")))
	r.Close()

	crashed := fs.CrashClone()

	db2, err := Open("db", Options{FS: crashed})
	require.NoError(t, err)
	defer db2.Close()

	r2 := db2.NewRef()
	defer r2.Close()
	v, err := r2.Get([]byte("synced"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	_, err = r2.Get([]byte("unsynced"))
	require.ErrorIs(t, err, base.ErrNotFound)
}

func TestCompactionTriggerAndEventListener(t *testing.T) {
	var begins, ends int
	var lastReinserted int
	db, _ := openTest(t, Options{
		MTSizeMB: 1,
		EventListener: EventListener{
			CompactionBegin: func(int64) { begins++ },
			CompactionEnd: func(info CompactionInfo) {
				ends++
				lastReinserted = info.Reinserted
				require.NoError(t, info.Err)
			},
		},
	})
	r := db.NewRef()
	defer r.Close()

	value := make([]byte, 4096)
	for i := 0; i < 512; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		require.NoError(t, r.Put(key, value))
	}

	require.Equal(t, begins, ends)
	require.GreaterOrEqual(t, begins, 1)
	require.Equal(t, 0, lastReinserted)

	// Every key written before compaction must still be visible afterward.
	for i := 0; i < 512; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		v, err := r.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, v)
	}
}

func TestOptionsEnsureDefaults(t *testing.T) {
	o := Options{}.EnsureDefaults()
	require.Equal(t, defaultCacheSizeMB, o.CacheSizeMB)
	require.Equal(t, defaultMTSizeMB, o.MTSizeMB)
	require.Equal(t, defaultWALSizeMB, o.WALSizeMB)
	require.Equal(t, defaultNrWorkers, o.NrWorkers)
	require.Equal(t, defaultCoPerWorker, o.CoPerWorker)
	require.Equal(t, int64(defaultMTSizeMB)<<20>>4, o.MaxRejectBytesPerCompaction)
	require.NotNil(t, o.FS)

	custom := Options{MTSizeMB: 7}.EnsureDefaults()
	require.Equal(t, 7, custom.MTSizeMB)
	require.Equal(t, int64(7)<<20>>4, custom.MaxRejectBytesPerCompaction)

	explicit := Options{MTSizeMB: 7, MaxRejectBytesPerCompaction: 123}.EnsureDefaults()
	require.Equal(t, int64(123), explicit.MaxRejectBytesPerCompaction)
}
