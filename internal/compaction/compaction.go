// Package compaction implements barrel's merge algorithm (spec.md §4.5): it
// rewrites a contiguous run of segments into fresh, size-capped output
// segments that hold only the current winner for each key, then swaps the
// KeyDir over to the rewritten locations in one step.
//
// Compact assumes it runs with exclusive access to both the input segments
// and the KeyDir — the engine invokes it synchronously from inside Set,
// never concurrently with another writer, per spec.md §5.
package compaction

import (
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/mistlake/barrel/internal/keydir"
	"github.com/mistlake/barrel/internal/segment"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// Result reports how Compact changed the segment table: RewrittenIDs are
// the IDs the output files were renamed to and now hold only live records
// (the lowest input IDs, in order, followed by any IDs allocateID supplied),
// DeletedIDs are the remaining input IDs, whose files were removed because
// there were fewer output files than inputs. The
// caller must close and reopen any file handle it holds open for an ID in
// either list — renaming over a file does not affect already-open
// descriptors pointed at the old data.
type Result struct {
	RewrittenIDs []uint64
	DeletedIDs   []uint64
}

// pending is the bookkeeping Compact accumulates per key while scanning,
// before it knows which output file will end up under which segment ID.
type pending struct {
	outputIdx int
	offset    int64
	timestamp uint64
}

// Compact merges inputIDs (ascending segment sequence numbers, none of
// them the active tail) against dir into one or more fresh output
// segments, then installs the rewritten locations into kd. rolloverSize
// caps each output file the same way live writes are capped. allocateID is
// called if the merge needs more output segments than it had inputs — the
// caller's own segment-ID counter — which in practice only happens if
// compaction runs with most input records still live.
func Compact(
	dir string,
	inputIDs []uint64,
	kd *keydir.KeyDir,
	rolloverSize int64,
	allocateID func() uint64,
	log *zap.SugaredLogger,
) (Result, error) {
	ids := append([]uint64(nil), inputIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) == 0 {
		return Result{}, nil
	}

	first, err := segment.OpenTempWriter(dir, 0)
	if err != nil {
		return Result{}, err
	}
	outputs := []*segment.Writer{first}
	pendingByKey := make(map[string]pending)

	abort := func() {
		for _, w := range outputs {
			_ = w.Abort()
		}
	}

	for _, id := range ids {
		if err := mergeOneSegment(dir, id, kd, rolloverSize, &outputs, pendingByKey); err != nil {
			abort()
			return Result{}, err
		}
	}

	for _, w := range outputs {
		if err := w.Sync(); err != nil {
			abort()
			return Result{}, err
		}
	}

	assigned := make([]uint64, len(outputs))
	for i := range assigned {
		if i < len(ids) {
			assigned[i] = ids[i]
		} else {
			assigned[i] = allocateID()
		}
	}

	for i, w := range outputs {
		if err := w.RenameTo(dir, assigned[i]); err != nil {
			return Result{}, err
		}
	}

	var deleted []uint64
	if len(ids) > len(outputs) {
		deleted = append(deleted, ids[len(outputs):]...)
		for _, id := range deleted {
			if err := os.Remove(segment.Path(dir, id)); err != nil && !os.IsNotExist(err) {
				return Result{}, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to delete fully-merged segment").
					WithSegmentID(int(id)).WithPath(segment.Path(dir, id))
			}
		}
	}

	updates := make(map[string]keydir.Pointer, len(pendingByKey))
	for key, p := range pendingByKey {
		updates[key] = keydir.Pointer{SegmentID: assigned[p.outputIdx], Offset: p.offset, Timestamp: p.timestamp}
	}
	kd.Swap(updates, nil)

	log.Debugw("compaction merged segments",
		"input_count", len(ids), "rewritten", assigned, "deleted", deleted, "keys_rewritten", len(updates))

	return Result{RewrittenIDs: assigned, DeletedIDs: deleted}, nil
}

// mergeOneSegment scans a single input segment, appending each record that
// is still the KeyDir's current winner to the active output file, rolling
// to a new output file when the size cap is hit.
func mergeOneSegment(
	dir string,
	id uint64,
	kd *keydir.KeyDir,
	rolloverSize int64,
	outputs *[]*segment.Writer,
	pendingByKey map[string]pending,
) error {
	path := segment.Path(dir, id)
	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.ClassifyFileOpenError(err, path, segment.Name(id))
	}
	defer f.Close()

	scanner := segment.NewScanner(f, 0)
	for scanner.Next() {
		rec := scanner.Record()

		ptr, ok, err := kd.Get(rec.Key)
		if err != nil {
			return err
		}
		if !ok || rec.Tombstone || ptr.Timestamp != rec.Timestamp {
			continue // superseded, tombstoned, or not this segment's copy
		}

		cur := (*outputs)[len(*outputs)-1]
		if cur.Size() >= rolloverSize {
			next, err := segment.OpenTempWriter(dir, len(*outputs))
			if err != nil {
				return err
			}
			*outputs = append(*outputs, next)
			cur = next
		}

		offset, err := cur.Append(rec)
		if err != nil {
			return err
		}
		pendingByKey[rec.Key] = pending{outputIdx: len(*outputs) - 1, offset: offset, timestamp: rec.Timestamp}
	}

	if err := scanner.Err(); err != nil {
		return pkgerrors.NewSegmentCorruptedError(int(id), int(scanner.Offset()), err)
	}
	return nil
}
