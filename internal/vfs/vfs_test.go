package vfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFSes(t *testing.T) map[string]func() (FS, string) {
	return map[string]func() (FS, string){
		"mem":  func() (FS, string) { return NewMem(), "db" },
		"disk": func() (FS, string) { return Default, t.TempDir() },
	}
}

func TestCreateOpenWriteReadRoundTrip(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			path := Join(dir, "f")

			f, err := fs.Create(path)
			require.NoError(t, err)
			_, err = f.Write([]byte("hello"))
			require.NoError(t, err)
			require.NoError(t, f.Close())

			require.True(t, fs.Exists(path))

			f2, err := fs.Open(path)
			require.NoError(t, err)
			buf := make([]byte, 5)
			n, err := f2.ReadAt(buf, 0)
			require.NoError(t, err)
			require.Equal(t, 5, n)
			require.Equal(t, "hello", string(buf))
			require.NoError(t, f2.Close())
		})
	}
}

func TestWriteAtPastEndOfFileZeroFillsGap(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			path := Join(dir, "f")
			f, err := fs.Create(path)
			require.NoError(t, err)
			_, err = f.WriteAt([]byte("x"), 8)
			require.NoError(t, err)
			require.NoError(t, f.Close())

			f2, err := fs.Open(path)
			require.NoError(t, err)
			buf := make([]byte, 9)
			_, err = f2.ReadAt(buf, 0)
			require.NoError(t, err)
			require.Equal(t, make([]byte, 8), buf[:8])
			require.Equal(t, byte('x'), buf[8])
			require.NoError(t, f2.Close())
		})
	}
}

func TestTruncateShrinksAndGrows(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			path := Join(dir, "f")
			f, err := fs.Create(path)
			require.NoError(t, err)
			_, err = f.Write([]byte("0123456789"))
			require.NoError(t, err)

			require.NoError(t, f.Truncate(4))
			st, err := f.Stat()
			require.NoError(t, err)
			require.Equal(t, int64(4), st.Size())

			require.NoError(t, f.Truncate(8))
			st, err = f.Stat()
			require.NoError(t, err)
			require.Equal(t, int64(8), st.Size())
			require.NoError(t, f.Close())
		})
	}
}

func TestRenameReplacesDestination(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			a, b := Join(dir, "a"), Join(dir, "b")
			fa, err := fs.Create(a)
			require.NoError(t, err)
			_, err = fa.Write([]byte("A"))
			require.NoError(t, err)
			require.NoError(t, fa.Close())

			fb, err := fs.Create(b)
			require.NoError(t, err)
			require.NoError(t, fb.Close())

			require.NoError(t, fs.Rename(a, b))
			require.False(t, fs.Exists(a))
			require.True(t, fs.Exists(b))

			f, err := fs.Open(b)
			require.NoError(t, err)
			buf := make([]byte, 1)
			_, err = f.ReadAt(buf, 0)
			require.NoError(t, err)
			require.Equal(t, "A", string(buf))
			require.NoError(t, f.Close())
		})
	}
}

func TestRemoveOfMissingFileIsNotAnError(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			require.NoError(t, fs.Remove(Join(dir, "missing")))
		})
	}
}

func TestCreateAtomicPublishesAllOrNothing(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			path := Join(dir, "manifest")
			require.NoError(t, CreateAtomic(fs, path, []byte("version-1")))

			f, err := fs.Open(path)
			require.NoError(t, err)
			buf := make([]byte, len("version-1"))
			_, err = f.ReadAt(buf, 0)
			require.NoError(t, err)
			require.Equal(t, "version-1", string(buf))
			require.NoError(t, f.Close())
			require.False(t, fs.Exists(path+".tmp"))
		})
	}
}

func TestOpenOfMissingFileFails(t *testing.T) {
	for name, mk := range testFSes(t) {
		t.Run(name, func(t *testing.T) {
			fs, dir := mk()
			_, err := fs.Open(Join(dir, "nope"))
			require.Error(t, err)
		})
	}
}

func TestCrashCloneDiscardsUnsyncedWrites(t *testing.T) {
	fs := NewMem()
	path := Join("db", "f")
	f, err := fs.Create(path)
	require.NoError(t, err)

	_, err = f.Write([]byte("synced"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	_, err = f.Write([]byte("-unsynced"))
	require.NoError(t, err)

	crashed := fs.CrashClone()

	cf, err := crashed.Open(path)
	require.NoError(t, err)
	st, err := cf.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(len("synced")), st.Size())
	buf := make([]byte, len("synced"))
	_, err = cf.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "synced", string(buf))
	require.NoError(t, cf.Close())

	// The live fs is untouched by taking a crash clone.
	live, err := fs.Open(path)
	require.NoError(t, err)
	liveSt, err := live.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(len("synced-unsynced")), liveSt.Size())
	require.NoError(t, live.Close())
}

func TestDiskFSListReturnsDirEntries(t *testing.T) {
	dir := t.TempDir()
	f, err := Default.Create(Join(dir, "x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	names, err := Default.List(dir)
	require.NoError(t, err)
	require.Contains(t, names, "x")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, len(names))
}
