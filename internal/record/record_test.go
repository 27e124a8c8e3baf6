package record

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/tinycask/tinycask/internal/kverr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"simple", "name", "Alice"},
		{"single byte", "k", "v"},
		{"long value", "city", string(bytes.Repeat([]byte("Berlin"), 1000))},
		{"binary value", "blob", string([]byte{0, 1, 2, 255, 254})},
		{"tombstone", "gone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Record{Key: []byte(tt.key), Val: []byte(tt.val)}.Encode()

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if string(decoded.Key) != tt.key {
				t.Errorf("key mismatch: got %q, want %q", decoded.Key, tt.key)
			}
			if string(decoded.Val) != tt.val {
				t.Errorf("value mismatch: got %q, want %q", decoded.Val, tt.val)
			}
		})
	}
}

func TestEncodedLayout(t *testing.T) {
	encoded := Record{Key: []byte("cat"), Val: []byte("meow")}.Encode()

	// key_len(8) + key(3) + val_len(8) + val(4)
	if len(encoded) != 23 {
		t.Fatalf("unexpected encoded length: got %d, want 23", len(encoded))
	}
	if got := binary.LittleEndian.Uint64(encoded[:8]); got != 3 {
		t.Errorf("key length field: got %d, want 3", got)
	}
	if string(encoded[8:11]) != "cat" {
		t.Errorf("key bytes: got %q, want %q", encoded[8:11], "cat")
	}
	if got := binary.LittleEndian.Uint64(encoded[11:19]); got != 4 {
		t.Errorf("value length field: got %d, want 4", got)
	}
	if string(encoded[19:]) != "meow" {
		t.Errorf("value bytes: got %q, want %q", encoded[19:], "meow")
	}
}

func TestTombstone(t *testing.T) {
	if !(Record{Key: []byte("k")}).Tombstone() {
		t.Error("record with empty value should be a tombstone")
	}
	if (Record{Key: []byte("k"), Val: []byte("v")}).Tombstone() {
		t.Error("record with non-empty value should not be a tombstone")
	}
}

func TestDecodeCorrupt(t *testing.T) {
	valid := Record{Key: []byte("key"), Val: []byte("value")}.Encode()

	overclaimingKey := make([]byte, len(valid))
	copy(overclaimingKey, valid)
	binary.LittleEndian.PutUint64(overclaimingKey[:8], 1000)

	overclaimingVal := make([]byte, len(valid))
	copy(overclaimingVal, valid)
	binary.LittleEndian.PutUint64(overclaimingVal[11:19], 1000)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"shorter than header", valid[:10]},
		{"truncated before value length", valid[:18]},
		{"key length exceeds input", overclaimingKey},
		{"value length exceeds input", overclaimingVal},
		{"trailing garbage", append(append([]byte{}, valid...), 'x')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !kverr.IsCorruptRecord(err) {
				t.Errorf("expected CORRUPT_RECORD error, got %v", err)
			}
		})
	}
}
