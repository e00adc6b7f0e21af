package base

import (
	"github.com/cockroachdb/errors"
)

// ErrNotFound means that a get or probe did not find the requested key, or
// found only a tombstone.
var ErrNotFound = errors.New("remixdb: not found")

// ErrInvalidRequest is returned, wrapped, when a request is rejected without
// touching any state because its key+value exceeds MaxKVLen (see CheckSize).
// A nil key or value is not rejected; it is stored as an empty one.
var ErrInvalidRequest = errors.New("remixdb: rejected request")

// ErrClosed is returned by a second Close of the same DB. Other operations
// issued against a closed DB or Ref do not check for it.
var ErrClosed = errors.New("remixdb: database closed")

// Fatalf reports an internal invariant violation and aborts the process.
// It is the idiomatic Go substitute for the original's debug_die(): view
// pointer mismatches, slab accounting underflow, and other states the spec
// documents as "impossible" are not recoverable and must not be allowed to
// silently corrupt on-disk state.
func Fatalf(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}

// CheckSize validates klen+vlen against the public size limit, returning
// ErrInvalidRequest if it is exceeded.
func CheckSize(keyLen, valueLen int) error {
	if keyLen+valueLen > MaxKVLen {
		return errors.Wrapf(ErrInvalidRequest, "klen+vlen %d exceeds %d", keyLen+valueLen, MaxKVLen)
	}
	return nil
}
