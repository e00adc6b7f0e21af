// Package vfs is a small filesystem abstraction, adapted from pebble's
// vfs.FS/vfs.File (see _examples/cockroachdb-pebble/vfs/vfs.go), trimmed to
// the handful of operations remixdb's WAL and SSTable layers need: create,
// open, remove, rename, symlink and list. Having this as an interface lets
// tests exercise crash/recovery scenarios against an in-memory filesystem
// (see mem.go) instead of real disk.
package vfs

import (
	"io"
	"os"
)

// File is a readable, writable sequence of bytes.
type File interface {
	io.Closer
	io.Reader
	io.ReaderAt
	io.Writer
	io.WriterAt
	Sync() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
}

// FS is a namespace of files, rooted at a directory.
type FS interface {
	// Create creates the named file for writing, truncating it if it exists.
	Create(name string) (File, error)
	// Open opens the named file for reading and writing.
	Open(name string) (File, error)
	// OpenForRead opens the named file read-only.
	OpenForRead(name string) (File, error)
	// Remove removes the named file. It is not an error to remove a file
	// that does not exist.
	Remove(name string) error
	// Rename renames oldname to newname, overwriting newname if it exists,
	// atomically with respect to a concurrent crash (temp+rename on disk).
	Rename(oldname, newname string) error
	// Symlink creates newname as a symbolic link to oldname, replacing any
	// existing file at newname.
	Symlink(oldname, newname string) error
	// Readlink returns the target of the symlink at name.
	Readlink(name string) (string, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// List returns the names of the entries in dir.
	List(dir string) ([]string, error)
	// Exists reports whether name exists.
	Exists(name string) bool
}

// CreateAtomic writes data to a temp file in the same directory as name and
// renames it into place, so a crash never observes a partially written
// file. It mirrors the temp+rename publish pattern the teacher uses for
// MANIFEST/version-edit files (version_set.go).
func CreateAtomic(fs FS, name string, data []byte) error {
	tmp := name + ".tmp"
	f, err := fs.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmp)
		return err
	}
	return fs.Rename(tmp, name)
}
