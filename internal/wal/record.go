package wal

import (
	"encoding/binary"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/crc32c"
)

// encodedLen returns the number of bytes Encode will write for rec.
func encodedLen(rec *base.Record) int {
	vlen := rec.VlenField()
	return uvarintLen(uint64(len(rec.Key))) + uvarintLen(uint64(vlen)) + len(rec.Key) + len(rec.Value) + 4
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Encode appends rec's WAL record encoding to buf, per spec.md §6:
// varint(klen), varint(vlen|TS-bit), key, value, u32 little-endian
// CRC32C(key). It returns the extended slice.
func Encode(buf []byte, rec *base.Record) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(rec.Key)))
	buf = binary.AppendUvarint(buf, uint64(rec.VlenField()))
	buf = append(buf, rec.Key...)
	buf = append(buf, rec.Value...)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32c.Sum(rec.Key))
	buf = append(buf, crcBuf[:]...)
	return buf
}

// Decode reads one record from the front of buf, returning the decoded
// record, the number of bytes consumed, and whether decoding succeeded. It
// fails (ok=false) on a short buffer, an overflowing length, or a CRC
// mismatch — any of which mean "stop, this is either end-of-file padding
// or file corruption", per spec.md §4.1's recover() contract.
func Decode(buf []byte) (rec *base.Record, n int, ok bool) {
	klen, n1 := binary.Uvarint(buf)
	if n1 <= 0 {
		return nil, 0, false
	}
	rest := buf[n1:]
	vlenField, n2 := binary.Uvarint(rest)
	if n2 <= 0 {
		return nil, 0, false
	}
	rest = rest[n2:]

	tombstone := vlenField&base.SSTVlenTS != 0
	vlen := vlenField & base.VlenMask

	// A zero-length key or value is legal (spec.md §8); only a short buffer
	// or overflowing length is treated as truncation/corruption.
	need := int(klen) + int(vlen) + 4
	if need < 0 || len(rest) < need {
		return nil, 0, false
	}
	key := append([]byte(nil), rest[:klen]...)
	value := append([]byte(nil), rest[klen:klen+vlen]...)
	crcOff := int(klen) + int(vlen)
	wantCRC := binary.LittleEndian.Uint32(rest[crcOff : crcOff+4])
	if crc32c.Sum(key) != wantCRC {
		return nil, 0, false
	}

	r := base.NewRecord(key, value, tombstone)
	consumed := n1 + n2 + int(klen) + int(vlen) + 4
	return r, consumed, true
}
