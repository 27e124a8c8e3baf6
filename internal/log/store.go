// Package log implements the append-only data file backing the engine.
//
// Each entry is framed as an 8-byte little-endian length header followed
// by exactly that many payload bytes. Entries are immutable once
// written; the file only ever grows. The offset of an entry's length
// header is its durable identity and is what the engine's index stores.
package log

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/tinycask/tinycask/internal/kverr"
)

// headerSize is the width of the length header preceding each payload.
const headerSize = 8

// Store owns the append-only data file: appends at the tail, positioned
// reads by entry offset, and a sequential scan for startup replay.
type Store struct {
	mu sync.Mutex

	file *os.File
	path string
	size int64 // append cursor, equal to the current file length

	// syncOnAppend controls whether Append fsyncs before returning.
	// Disabling it trades the crash guarantee for throughput.
	syncOnAppend bool
	closed       bool
}

// Open opens or creates the data file at path for appends and
// positioned reads.
func Open(path string, syncOnAppend bool) (*Store, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, kverr.New(kverr.ErrorTypeIO, "failed to open data file", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, kverr.New(kverr.ErrorTypeIO, "failed to stat data file", err)
	}

	return &Store{
		file:         file,
		path:         path,
		size:         stat.Size(),
		syncOnAppend: syncOnAppend,
	}, nil
}

// Path returns the path of the underlying data file.
func (s *Store) Path() string {
	return s.path
}

// Size returns the current length of the data file in bytes.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Append writes a length-prefixed entry at the tail of the file and
// returns the offset of the entry's length header. The header and
// payload are written with a single write call so no reader that waits
// for Append to return can observe a partial entry. When syncOnAppend
// is set the entry is fsynced before Append returns.
func (s *Store) Append(payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, kverr.New(kverr.ErrorTypeIO, "store is closed", nil)
	}

	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint64(buf[:headerSize], uint64(len(payload)))
	copy(buf[headerSize:], payload)

	offset := s.size
	if _, err := s.file.WriteAt(buf, offset); err != nil {
		return 0, kverr.New(kverr.ErrorTypeIO, "failed to append entry", err)
	}
	s.size += int64(len(buf))

	if s.syncOnAppend {
		if err := s.file.Sync(); err != nil {
			return 0, kverr.New(kverr.ErrorTypeIO, "failed to sync data file", err)
		}
	}

	return offset, nil
}

// ReadAt reads the entry whose length header starts at offset and
// returns its payload.
func (s *Store) ReadAt(offset int64) ([]byte, error) {
	s.mu.Lock()
	size := s.size
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return nil, kverr.New(kverr.ErrorTypeIO, "store is closed", nil)
	}
	if offset < 0 || offset+headerSize > size {
		return nil, kverr.New(kverr.ErrorTypeCorruptRecord,
			"entry offset past end of file", nil)
	}

	header := make([]byte, headerSize)
	if _, err := s.file.ReadAt(header, offset); err != nil {
		return nil, kverr.New(kverr.ErrorTypeIO, "failed to read entry header", err)
	}

	length := binary.LittleEndian.Uint64(header)
	if length > uint64(size-offset-headerSize) {
		return nil, kverr.New(kverr.ErrorTypeCorruptRecord,
			"entry length exceeds remaining file size", nil)
	}

	payload := make([]byte, length)
	if _, err := s.file.ReadAt(payload, offset+headerSize); err != nil {
		return nil, kverr.New(kverr.ErrorTypeIO, "failed to read entry payload", err)
	}

	return payload, nil
}

// Scan returns a sequential scanner over every entry in the file, from
// offset 0 to end of file, in write order. The scanner is single-pass
// and is used for startup replay.
func (s *Store) Scan() *Scanner {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &Scanner{
		file: s.file,
		size: s.size,
	}
}

// Sync flushes the data file to stable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kverr.New(kverr.ErrorTypeIO, "store is closed", nil)
	}
	if err := s.file.Sync(); err != nil {
		return kverr.New(kverr.ErrorTypeIO, "failed to sync data file", err)
	}
	return nil
}

// Close syncs and releases the file handle. Operations after Close fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return kverr.New(kverr.ErrorTypeIO, "failed to sync data file on close", err)
	}
	if err := s.file.Close(); err != nil {
		return kverr.New(kverr.ErrorTypeIO, "failed to close data file", err)
	}
	return nil
}

// Scanner walks the data file entry by entry. Usage follows the
// bufio.Scanner shape:
//
//	sc := store.Scan()
//	for sc.Next() {
//	    offset, payload := sc.Offset(), sc.Payload()
//	    ...
//	}
//	if err := sc.Err(); err != nil { ... }
//
// A truncated trailing entry (fewer bytes remain than its header
// declares, the signature of a crash mid-append) stops the scan and is
// reported through Truncated rather than Err.
type Scanner struct {
	file *os.File
	size int64

	next      int64 // offset of the next unread header
	offset    int64 // offset of the current entry
	payload   []byte
	err       error
	truncated bool
	done      bool
}

// Next advances to the next entry. It returns false at end of file, on
// a truncated tail, or on a read error.
func (sc *Scanner) Next() bool {
	if sc.done {
		return false
	}

	if sc.next == sc.size {
		sc.done = true
		return false
	}
	if sc.next+headerSize > sc.size {
		// Partial length header at the tail.
		sc.truncated = true
		sc.done = true
		return false
	}

	header := make([]byte, headerSize)
	if _, err := sc.file.ReadAt(header, sc.next); err != nil {
		sc.err = kverr.New(kverr.ErrorTypeIO, "failed to read entry header", err)
		sc.done = true
		return false
	}

	length := binary.LittleEndian.Uint64(header)
	if length > uint64(sc.size-sc.next-headerSize) {
		// The last header promises more bytes than the file holds.
		sc.truncated = true
		sc.done = true
		return false
	}

	payload := make([]byte, length)
	if _, err := sc.file.ReadAt(payload, sc.next+headerSize); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			sc.truncated = true
		} else {
			sc.err = kverr.New(kverr.ErrorTypeIO, "failed to read entry payload", err)
		}
		sc.done = true
		return false
	}

	sc.offset = sc.next
	sc.payload = payload
	sc.next += headerSize + int64(length)
	return true
}

// Offset returns the file offset of the current entry's length header.
func (sc *Scanner) Offset() int64 {
	return sc.offset
}

// Payload returns the current entry's payload.
func (sc *Scanner) Payload() []byte {
	return sc.payload
}

// Err returns the first read error encountered, if any. A truncated
// tail is not an error.
func (sc *Scanner) Err() error {
	return sc.err
}

// Truncated reports whether the scan stopped at an incomplete trailing
// entry.
func (sc *Scanner) Truncated() bool {
	return sc.truncated
}
