package sstable

import (
	"encoding/binary"

	"github.com/Kevin-Yang1/remixdb/internal/base"
	"github.com/Kevin-Yang1/remixdb/internal/crc32c"
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// encodeEntries packs records (sorted, unique keys) into a block's
// uncompressed payload: a flat sequence of [varint klen][varint vlen|TS]
// [key][value], with no per-record checksum (the block as a whole is
// checksummed once by the caller), mirroring the teacher's
// restart-point-free simple block format for small blocks.
func encodeEntries(records []*base.Record) []byte {
	var buf []byte
	for _, r := range records {
		buf = binary.AppendUvarint(buf, uint64(len(r.Key)))
		buf = binary.AppendUvarint(buf, uint64(r.VlenField()))
		buf = append(buf, r.Key...)
		buf = append(buf, r.Value...)
	}
	return buf
}

// decodeEntries is the inverse of encodeEntries.
func decodeEntries(buf []byte) ([]*base.Record, error) {
	var out []*base.Record
	for len(buf) > 0 {
		klen, n1 := binary.Uvarint(buf)
		if n1 <= 0 {
			return nil, errors.New("remixdb: corrupt block entry (klen)")
		}
		buf = buf[n1:]
		vlenField, n2 := binary.Uvarint(buf)
		if n2 <= 0 {
			return nil, errors.New("remixdb: corrupt block entry (vlen)")
		}
		buf = buf[n2:]
		tombstone := vlenField&base.SSTVlenTS != 0
		vlen := vlenField & base.VlenMask
		need := int(klen) + int(vlen)
		if need > len(buf) {
			return nil, errors.New("remixdb: corrupt block entry (short)")
		}
		key := append([]byte(nil), buf[:klen]...)
		value := append([]byte(nil), buf[klen:klen+vlen]...)
		buf = buf[need:]
		out = append(out, base.NewRecord(key, value, tombstone))
	}
	return out, nil
}

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// compress returns the on-disk block bytes for raw: a one-byte codec tag, a
// varint-prefixed payload, and a trailing 4-byte little-endian CRC32C of
// (tag || varint length || payload). codec selects among codecNone/codecSnappy/codecZstd,
// mirroring the teacher's per-block codec byte (sstable/block/block.go).
func compress(raw []byte, codec byte) []byte {
	var payload []byte
	switch codec {
	case codecSnappy:
		payload = snappy.Encode(nil, raw)
	case codecZstd:
		payload = zstdEncoder.EncodeAll(raw, nil)
	default:
		codec = codecNone
		payload = raw
	}
	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(payload)+4)
	out = append(out, codec)
	out = binary.AppendUvarint(out, uint64(len(payload)))
	out = append(out, payload...)
	sum := crc32c.Sum(out)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], sum)
	out = append(out, crcBuf[:]...)
	return out
}

// decompress is the inverse of compress, validating the trailing checksum.
func decompress(buf []byte) ([]byte, error) {
	if len(buf) < 1+4 {
		return nil, errors.New("remixdb: truncated block")
	}
	body := buf[:len(buf)-4]
	wantCRC := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if crc32c.Sum(body) != wantCRC {
		return nil, errors.New("remixdb: block checksum mismatch")
	}
	codec := body[0]
	plen, n := binary.Uvarint(body[1:])
	if n <= 0 {
		return nil, errors.New("remixdb: corrupt block length")
	}
	payload := body[1+n:]
	if uint64(len(payload)) != plen {
		return nil, errors.New("remixdb: corrupt block payload length")
	}
	switch codec {
	case codecSnappy:
		return snappy.Decode(nil, payload)
	case codecZstd:
		return zstdDecoder.DecodeAll(payload, nil)
	default:
		return payload, nil
	}
}
