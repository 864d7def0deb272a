package keydir

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// initialCapacity sizes the backing map for a freshly opened store before
// its actual key count is known. It only avoids a few early rehashes; it
// has no bearing on correctness.
const initialCapacity = 2046

// KeyDir is the in-memory index described by spec.md §3: a map from key to
// the location and timestamp of its most recent write, guarded by a single
// RWMutex so readers never block each other and writers never see a torn
// update.
type KeyDir struct {
	log *zap.SugaredLogger

	mu      sync.RWMutex
	entries map[string]Pointer

	closed atomic.Bool
}

// New returns an empty KeyDir. Callers populate it by replaying segments
// (see engine.Open) before serving any Get.
func New(log *zap.SugaredLogger) *KeyDir {
	return &KeyDir{
		log:     log,
		entries: make(map[string]Pointer, initialCapacity),
	}
}

// Put records key's current location, unconditionally overwriting whatever
// was there before. Callers are responsible for timestamp ordering —
// KeyDir does not itself reject an out-of-order Put, since during startup
// replay a later record in segment order always supersedes an earlier one
// regardless of how the caller iterates.
func (k *KeyDir) Put(key string, ptr Pointer) error {
	if err := k.mustNotBeClosed(key, "Put"); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[key] = ptr
	return nil
}

// Get returns key's current pointer. ok is false if key has no live entry,
// either because it was never written or because it was deleted.
func (k *KeyDir) Get(key string) (Pointer, bool, error) {
	if err := k.mustNotBeClosed(key, "Get"); err != nil {
		return Pointer{}, false, err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	ptr, ok := k.entries[key]
	return ptr, ok, nil
}

// Delete removes key's entry, reporting whether it was present.
func (k *KeyDir) Delete(key string) (bool, error) {
	if err := k.mustNotBeClosed(key, "Delete"); err != nil {
		return false, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.entries[key]; !ok {
		return false, nil
	}
	delete(k.entries, key)
	return true, nil
}

// Len returns the number of live keys.
func (k *KeyDir) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// ForEach calls fn once for every live key, in unspecified order. fn must
// not call back into the KeyDir: ForEach holds the read lock for its
// duration, and the map must not be mutated while it runs.
func (k *KeyDir) ForEach(fn func(key string, ptr Pointer)) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for key, ptr := range k.entries {
		fn(key, ptr)
	}
}

// Swap atomically replaces the pointers for the given keys, used by the
// compactor to install its rewritten locations in one step once a merge
// output segment has been synced and renamed into place. Keys present in
// removed but absent from updated are dropped entirely: compaction proved
// they have no live record left.
func (k *KeyDir) Swap(updated map[string]Pointer, removed map[string]struct{}) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key := range removed {
		delete(k.entries, key)
	}
	for key, ptr := range updated {
		k.entries[key] = ptr
	}
}

// Close marks the KeyDir unusable and releases its backing map. It is safe
// to call more than once.
func (k *KeyDir) Close() error {
	if !k.closed.CompareAndSwap(false, true) {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = nil
	return nil
}

// mustNotBeClosed is a guard engine can use before an operation that would
// otherwise panic on a nil map; kept as a small helper rather than inlined
// at every call site.
func (k *KeyDir) mustNotBeClosed(key, op string) error {
	if k.closed.Load() {
		return pkgerrors.NewIndexError(nil, pkgerrors.ErrorCodeIndexCorrupted, "keydir is closed").
			WithKey(key).WithOperation(op)
	}
	return nil
}
