package base

import "bytes"

// Compare orders two keys. remixdb keys are arbitrary byte strings ordered
// lexicographically; unlike pebble's Compare, there is no user-key/suffix
// split since the spec defines no suffix concept.
type Compare func(a, b []byte) int

// DefaultCompare is the only comparer remixdb ships: plain byte-wise order.
func DefaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}
