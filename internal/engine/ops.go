package engine

import (
	"github.com/mistlake/barrel/internal/keydir"
	"github.com/mistlake/barrel/internal/record"
	"github.com/mistlake/barrel/internal/segment"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// Get implements spec.md §4.4's get(key) -> Option<value>. It never
// mutates the engine's visible state.
func (e *Engine) Get(key string) (string, bool, error) {
	if e.closed.Load() {
		return "", false, ErrEngineClosed
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ptr, ok, err := e.keydir.Get(key)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	w, ok := e.segments[ptr.SegmentID]
	if !ok {
		return "", false, pkgerrors.NewSegmentIDError(uint16(ptr.SegmentID), key)
	}

	rec, _, err := segment.ReadAt(w.File(), ptr.Offset)
	if err != nil {
		return "", false, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeSegmentCorrupted, "failed to decode record at keydir offset").
			WithSegmentID(int(ptr.SegmentID)).WithOffset(int(ptr.Offset))
	}

	return rec.Value, true, nil
}

// Set implements spec.md §4.4's set(key, value) -> ok | Err: it rolls over
// the active segment if needed, appends a put record, installs the new
// location in the KeyDir, and triggers compaction if the segment count now
// exceeds the configured threshold.
func (e *Engine) Set(key, value string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rolloverIfNeededLocked(); err != nil {
		return err
	}

	active := e.segments[e.activeID]
	rec := record.Record{Timestamp: e.counter, Key: key, Value: value}

	offset, err := active.Append(rec)
	if err != nil {
		return err
	}

	if err := e.keydir.Put(key, keydir.Pointer{SegmentID: e.activeID, Offset: offset, Timestamp: e.counter}); err != nil {
		return err
	}
	e.counter++

	return e.maybeCompactLocked()
}

// Remove implements spec.md §4.4's remove(key) -> ok | KeyNotFound: if key
// has no live entry it fails without writing anything; otherwise it
// appends a tombstone, removes the KeyDir entry, and triggers compaction
// the same way Set does.
func (e *Engine) Remove(key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok, err := e.keydir.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.NewKeyNotFoundError(key)
	}

	if err := e.rolloverIfNeededLocked(); err != nil {
		return err
	}

	active := e.segments[e.activeID]
	rec := record.Record{Timestamp: e.counter, Tombstone: true, Key: key}

	if _, err := active.Append(rec); err != nil {
		return err
	}

	if _, err := e.keydir.Delete(key); err != nil {
		return err
	}
	e.counter++

	return e.maybeCompactLocked()
}
