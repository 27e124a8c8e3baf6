// Package record implements the binary encoding of a single key-value
// record.
//
// The encoded layout is fixed and self-delimiting:
//
//	-------------------------------------------------
//	| key_len(8, u64, LE) | key | val_len(8, u64, LE) | val |
//	-------------------------------------------------
//
// Both lengths are 8-byte little-endian so Decode can locate field
// boundaries without scanning for delimiters. An empty value is the
// tombstone marker: it is how a deletion is represented on disk.
package record

import (
	"encoding/binary"

	"github.com/tinycask/tinycask/internal/kverr"
)

// lenWidth is the width of each embedded length field.
const lenWidth = 8

// minSize is the smallest possible encoded record: two length fields
// and no key or value bytes.
const minSize = 2 * lenWidth

// Record is a single key-value pair as stored in the data file.
type Record struct {
	Key []byte
	Val []byte
}

// Tombstone reports whether the record marks its key as deleted.
func (r Record) Tombstone() bool {
	return len(r.Val) == 0
}

// Encode serializes the record into a self-delimiting byte sequence.
func (r Record) Encode() []byte {
	data := make([]byte, minSize+len(r.Key)+len(r.Val))

	offset := 0
	binary.LittleEndian.PutUint64(data[offset:offset+lenWidth], uint64(len(r.Key)))
	offset += lenWidth
	copy(data[offset:], r.Key)
	offset += len(r.Key)
	binary.LittleEndian.PutUint64(data[offset:offset+lenWidth], uint64(len(r.Val)))
	offset += lenWidth
	copy(data[offset:], r.Val)

	return data
}

// Decode parses an encoded record. It fails with a CORRUPT_RECORD error
// if the input is shorter than the minimum header size, if an embedded
// length claims more bytes than are available, or if trailing bytes
// remain beyond what the embedded lengths account for.
func Decode(data []byte) (Record, error) {
	if len(data) < minSize {
		return Record{}, kverr.New(kverr.ErrorTypeCorruptRecord,
			"record shorter than minimum header size", nil)
	}

	offset := 0
	keyLen := binary.LittleEndian.Uint64(data[offset : offset+lenWidth])
	offset += lenWidth

	if keyLen > uint64(len(data)-offset) {
		return Record{}, kverr.New(kverr.ErrorTypeCorruptRecord,
			"key length exceeds available bytes", nil)
	}
	key := data[offset : offset+int(keyLen)]
	offset += int(keyLen)

	if len(data)-offset < lenWidth {
		return Record{}, kverr.New(kverr.ErrorTypeCorruptRecord,
			"record truncated before value length", nil)
	}
	valLen := binary.LittleEndian.Uint64(data[offset : offset+lenWidth])
	offset += lenWidth

	if valLen > uint64(len(data)-offset) {
		return Record{}, kverr.New(kverr.ErrorTypeCorruptRecord,
			"value length exceeds available bytes", nil)
	}
	val := data[offset : offset+int(valLen)]
	offset += int(valLen)

	if offset != len(data) {
		return Record{}, kverr.New(kverr.ErrorTypeCorruptRecord,
			"trailing bytes after encoded record", nil)
	}

	return Record{Key: key, Val: val}, nil
}
