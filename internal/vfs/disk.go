package vfs

import (
	"os"
	"path/filepath"
)

// diskFS implements FS directly against the operating system, adapted from
// pebble's vfs.defaultFS (_examples/cockroachdb-pebble/vfs/default_unix.go /
// vfs.go).
type diskFS struct{}

// Default is the real, disk-backed filesystem.
var Default FS = diskFS{}

func (diskFS) Create(name string) (File, error) {
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
}

func (diskFS) Open(name string) (File, error) {
	return os.OpenFile(name, os.O_RDWR, 0644)
}

func (diskFS) OpenForRead(name string) (File, error) {
	return os.OpenFile(name, os.O_RDONLY, 0644)
}

func (diskFS) Remove(name string) error {
	err := os.Remove(name)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (diskFS) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (diskFS) Symlink(oldname, newname string) error {
	_ = os.Remove(newname)
	return os.Symlink(oldname, newname)
}

func (diskFS) Readlink(name string) (string, error) {
	return os.Readlink(name)
}

func (diskFS) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (diskFS) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (diskFS) Exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}

// Join is a convenience wrapper over filepath.Join used throughout remixdb
// to build paths under a database directory.
func Join(elem ...string) string {
	return filepath.Join(elem...)
}
