package remixdb

import "github.com/Kevin-Yang1/remixdb/internal/engine"

// Iterator walks a consistent snapshot of a DB in ascending key order.
// Create one with Ref.NewIterator; call Destroy when done.
type Iterator struct {
	it *engine.Iterator
}

// SeekToFirst positions the iterator at the smallest live key.
func (it *Iterator) SeekToFirst() {
	it.it.SeekToFirst()
}

// Seek positions the iterator at the first live key >= target.
func (it *Iterator) Seek(target []byte) {
	it.it.Seek(target)
}

// Valid reports whether the iterator is positioned at a live record.
func (it *Iterator) Valid() bool {
	return it.it.Valid()
}

// Err returns any error encountered while reading the sstable layer.
func (it *Iterator) Err() error {
	return it.it.Err()
}

// Key returns the current record's key. The returned slice is only valid
// until the next call on it.
func (it *Iterator) Key() []byte {
	return it.it.Peek().Key
}

// Value returns the current record's value. The returned slice is only
// valid until the next call on it.
func (it *Iterator) Value() []byte {
	return it.it.Peek().Value
}

// Next advances to the next distinct live key.
func (it *Iterator) Next() {
	it.it.Next()
}

// Park releases the iterator's ref from blocking compaction's quiescence
// wait while it sits idle.
func (it *Iterator) Park() {
	it.it.Park()
}

// Resume un-parks the iterator, matching Park.
func (it *Iterator) Resume() {
	it.it.Resume()
}

// Destroy releases the iterator's resources. It must not be used
// afterwards.
func (it *Iterator) Destroy() {
	it.it.Destroy()
}
