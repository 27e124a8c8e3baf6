// Package engine exposes the key-value contract: Get, Set and Delete
// backed by the append-only log and an in-memory index rebuilt by
// replay on every Open.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/tinycask/tinycask/internal/kverr"
	"github.com/tinycask/tinycask/internal/log"
	"github.com/tinycask/tinycask/internal/record"
	"github.com/tinycask/tinycask/internal/shared"
)

// Options configures an Engine. The zero value is not usable; use
// DefaultOptions as the starting point.
type Options struct {
	// SyncOnAppend makes every Set and Delete fsync before returning,
	// so a crash immediately after a successful call never loses the
	// entry. Disabling it is a throughput/durability trade-off.
	SyncOnAppend bool
	Logger       *shared.Logger
}

// DefaultOptions returns the options an Engine runs with unless told
// otherwise.
func DefaultOptions() Options {
	return Options{
		SyncOnAppend: true,
		Logger:       shared.DefaultLogger,
	}
}

// Metrics tracks engine operation counts. Counters are updated with
// atomics so reads do not need the engine lock.
type Metrics struct {
	ReadCount       int64
	WriteCount      int64
	DeleteCount     int64
	ErrorCount      int64
	ReplayedEntries int64
}

// Engine is a single-file, append-only key-value store. The index maps
// each live key to the file offset of its most recent log entry; it is
// rebuilt from the log on Open and never persisted.
//
// A single RWMutex guards the pair (append cursor, index): shared for
// Get, exclusive for Set, Delete and the replay in Open. Multiple
// Engine instances over different files coexist; the index is owned by
// the instance, not process-global.
type Engine struct {
	mu      sync.RWMutex
	store   *log.Store
	index   map[string]int64
	logger  *shared.Logger
	metrics Metrics
	closed  bool
}

// Open opens or creates the database file at path and rebuilds the
// in-memory index by replaying the log from the start. A truncated
// trailing entry is treated as never written; any other malformed
// entry fails Open with a CORRUPT_RECORD error.
func Open(path string, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = shared.DefaultLogger
	}

	store, err := log.Open(path, opts.SyncOnAppend)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:  store,
		index:  make(map[string]int64),
		logger: opts.Logger,
	}

	if err := e.replay(); err != nil {
		store.Close()
		return nil, err
	}

	return e, nil
}

// replay drains the store's scan in file order and applies each record
// to the index. Later entries supersede earlier ones for the same key;
// file order is the sole conflict-resolution rule.
func (e *Engine) replay() error {
	sc := e.store.Scan()
	var replayed int64

	for sc.Next() {
		rec, err := record.Decode(sc.Payload())
		if err != nil {
			// Interior corruption: the append-only invariant was
			// violated by something other than a crash mid-append.
			return kverr.New(kverr.ErrorTypeCorruptRecord,
				"replay failed: malformed entry in log interior", err)
		}

		if rec.Tombstone() {
			delete(e.index, string(rec.Key))
		} else {
			e.index[string(rec.Key)] = sc.Offset()
		}
		replayed++
	}

	if err := sc.Err(); err != nil {
		return err
	}
	if sc.Truncated() {
		e.logger.Warn("replay: incomplete entry at log tail ignored (crash mid-append), path=%s", e.store.Path())
	}

	atomic.StoreInt64(&e.metrics.ReplayedEntries, replayed)
	e.logger.Info("replay complete: %d entries, %d live keys, path=%s",
		replayed, len(e.index), e.store.Path())
	return nil
}

// Get returns the value stored for key. It fails with NOT_FOUND when
// the key is absent from the index. A live key's latest entry is never
// a tombstone, so the returned value is always non-empty.
func (e *Engine) Get(key string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	atomic.AddInt64(&e.metrics.ReadCount, 1)

	if e.closed {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return nil, kverr.New(kverr.ErrorTypeIO, "engine is closed", nil)
	}

	offset, ok := e.index[key]
	if !ok {
		return nil, kverr.New(kverr.ErrorTypeNotFound, "key not found: "+key, nil)
	}

	payload, err := e.store.ReadAt(offset)
	if err != nil {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return nil, err
	}

	rec, err := record.Decode(payload)
	if err != nil {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return nil, err
	}

	return rec.Val, nil
}

// Set durably stores value for key and points the index at the new
// entry. An empty value is rejected with INVALID_VALUE: the empty
// encoding is reserved for tombstones, and allowing it through would
// make "set to empty" indistinguishable from "deleted" on disk.
func (e *Engine) Set(key string, value []byte) error {
	if key == "" {
		return kverr.New(kverr.ErrorTypeInvalidValue, "key must not be empty", nil)
	}
	if len(value) == 0 {
		return kverr.New(kverr.ErrorTypeInvalidValue,
			"empty values are reserved for tombstones", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return kverr.New(kverr.ErrorTypeIO, "engine is closed", nil)
	}

	rec := record.Record{Key: []byte(key), Val: value}
	offset, err := e.store.Append(rec.Encode())
	if err != nil {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return err
	}

	e.index[key] = offset
	atomic.AddInt64(&e.metrics.WriteCount, 1)
	return nil
}

// Delete appends a tombstone for key and removes it from the index.
// Deleting an absent key is not an error: the tombstone is still
// durably appended, the index is simply unaffected.
func (e *Engine) Delete(key string) error {
	if key == "" {
		return kverr.New(kverr.ErrorTypeInvalidValue, "key must not be empty", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return kverr.New(kverr.ErrorTypeIO, "engine is closed", nil)
	}

	rec := record.Record{Key: []byte(key)}
	if _, err := e.store.Append(rec.Encode()); err != nil {
		atomic.AddInt64(&e.metrics.ErrorCount, 1)
		return err
	}

	delete(e.index, key)
	atomic.AddInt64(&e.metrics.DeleteCount, 1)
	return nil
}

// Keys returns a snapshot of all live keys. The order is unspecified.
func (e *Engine) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.index))
	for k := range e.index {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of live keys in the index.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.index)
}

// Size returns the length of the data file in bytes. It only ever
// grows: superseded entries remain on disk as dead space.
func (e *Engine) Size() int64 {
	return e.store.Size()
}

// Path returns the path of the underlying data file.
func (e *Engine) Path() string {
	return e.store.Path()
}

// GetMetrics returns a snapshot of the engine metrics.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		ReadCount:       atomic.LoadInt64(&e.metrics.ReadCount),
		WriteCount:      atomic.LoadInt64(&e.metrics.WriteCount),
		DeleteCount:     atomic.LoadInt64(&e.metrics.DeleteCount),
		ErrorCount:      atomic.LoadInt64(&e.metrics.ErrorCount),
		ReplayedEntries: atomic.LoadInt64(&e.metrics.ReplayedEntries),
	}
}

// Sync flushes the data file to stable storage.
func (e *Engine) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return kverr.New(kverr.ErrorTypeIO, "engine is closed", nil)
	}
	return e.store.Sync()
}

// Close syncs and releases the underlying file handle. The index is
// discarded; it is rebuilt from the log on the next Open. Close is
// idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}
