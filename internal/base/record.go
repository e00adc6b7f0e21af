// Package base holds the types shared by every other internal package of
// remixdb: the on-the-wire/in-memory record representation, key references,
// the comparer, and a handful of size limits and invariant helpers. It plays
// the same role here that github.com/cockroachdb/pebble/internal/base plays
// for pebble: the lowest layer everything else imports.
package base

import (
	"bytes"

	"github.com/Kevin-Yang1/remixdb/internal/crc32c"
)

// SSTVlenTS is the sentinel bit that marks a record as a tombstone. It is
// stored in the vlen field alongside the (usually zero) residual value
// length, exactly as RemixDB's SST_VLEN_TS.
const SSTVlenTS = 0x10000

// VlenMask extracts the effective value length from a vlen field that may
// carry the tombstone bit.
const VlenMask = 0xFFFF

// MaxKVLen is the maximum combined length of a key and a value, enforced at
// the public API boundary.
const MaxKVLen = 65500

// CRC32CSeed is the seed used both for a record's key hash and for WAL
// record checksums.
const CRC32CSeed = 0xDEADBEEF

// Disposition records whether a compaction partition containing this key
// was rewritten into a new SSTable (Accepted) or left untouched on disk
// (Rejected). It has no meaning outside of a compaction pass.
type Disposition uint8

const (
	// Unset is the disposition of a record outside of compaction.
	Unset Disposition = iota
	Accepted
	Rejected
)

// Record is a single key-value entry as it flows through the memtable, the
// WAL, and the SSTable layers. It mirrors struct kv from RemixDB's kv.h:
// key and value byte strings, a 64-bit hash (low 32 bits CRC32C(key), high
// 32 bits its bitwise complement), a tombstone flag, and, only meaningful
// during compaction, a disposition.
type Record struct {
	Key   []byte
	Value []byte
	Hash  uint64
	// Tombstone marks Record as a delete marker. The encoded vlen field (see
	// VlenField, VlenMask) may carry a residual, reserved length alongside
	// the tombstone bit; remixdb never constructs one and
	// treats it as undefined if encountered (see SPEC_FULL.md Open Questions).
	Tombstone   bool
	Disposition Disposition
}

// HashLo is the low 32 bits of Hash: CRC32C(key).
func (r *Record) HashLo() uint32 { return uint32(r.Hash) }

// HashHi is the high 32 bits of Hash: ^HashLo().
func (r *Record) HashHi() uint32 { return uint32(r.Hash >> 32) }

// Size is the accounting size of a record, used to maintain mtsz. It charges
// for key, value and a fixed per-record overhead, mirroring kv_size in the
// original kv.h (header + kv[] flexible array).
func (r *Record) Size() int {
	return len(r.Key) + len(r.Value) + recordOverhead
}

// recordOverhead approximates struct kv's fixed header (klen/vlen/hash).
const recordOverhead = 24

// Clone returns a deep copy of r, suitable for storing independently of the
// caller's buffers (e.g. inserting a request's kv into the memtable).
func (r *Record) Clone() *Record {
	c := &Record{
		Hash:        r.Hash,
		Tombstone:   r.Tombstone,
		Disposition: r.Disposition,
	}
	c.Key = append([]byte(nil), r.Key...)
	if len(r.Value) > 0 {
		c.Value = append([]byte(nil), r.Value...)
	}
	return c
}

// VlenField encodes the record's value length and tombstone bit the way the
// WAL and SSTable formats store it on disk.
func (r *Record) VlenField() uint32 {
	v := uint32(len(r.Value))
	if r.Tombstone {
		v |= SSTVlenTS
	}
	return v
}

// Kref is a non-owning reference to a key: a pointer/length pair plus the
// low 32 bits of its hash, used on lookup paths to avoid copying keys. It
// mirrors struct kref in kv.h.
type Kref struct {
	Data   []byte
	Hash32 uint32
}

// MakeKref builds a Kref from a raw key, computing its hash.
func MakeKref(key []byte) Kref {
	return Kref{Data: key, Hash32: crc32c.Sum(key)}
}

// HashKey computes the full 64-bit record hash for key: low 32 bits are
// CRC32C(key), high 32 bits are its bitwise complement (see crc32c.Extend).
func HashKey(key []byte) uint64 {
	return crc32c.Extend(crc32c.Sum(key))
}

// NewRecord builds a Record for key/value, computing its hash. The caller
// retains ownership of key and value; use Clone to take an independent copy.
func NewRecord(key, value []byte, tombstone bool) *Record {
	return &Record{
		Key:       key,
		Value:     value,
		Hash:      HashKey(key),
		Tombstone: tombstone,
	}
}

// Equal reports whether k references the same key bytes as other.
func (k Kref) Equal(other []byte) bool {
	return bytes.Equal(k.Data, other)
}

// Kvref is a non-owning reference to a full key-value pair: separate
// pointers for key and value plus a header carrying length/hash/tombstone
// metadata, mirroring struct kvref in kv.h. It is used by iterators that
// want to avoid copying the value just to report it to the caller.
type Kvref struct {
	Key         []byte
	Value       []byte
	Hash        uint64
	Tombstone   bool
	Disposition Disposition
}

// KvrefFromRecord builds a Kvref view over an existing Record without copying.
func KvrefFromRecord(r *Record) Kvref {
	return Kvref{
		Key:         r.Key,
		Value:       r.Value,
		Hash:        r.Hash,
		Tombstone:   r.Tombstone,
		Disposition: r.Disposition,
	}
}
