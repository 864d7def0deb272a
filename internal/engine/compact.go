package engine

import (
	"sort"
	"time"

	"github.com/mistlake/barrel/internal/compaction"
	"github.com/mistlake/barrel/internal/segment"
)

// rolloverIfNeededLocked implements spec.md §4.4's rollover policy: if the
// active segment has grown past RolloverSize, retire it and open a fresh
// one as the new active tail. Must be called with mu held.
func (e *Engine) rolloverIfNeededLocked() error {
	active := e.segments[e.activeID]
	if active.Size() < e.opts.RolloverSize {
		return nil
	}

	id := e.allocateSegmentID()
	w, err := segment.OpenWriter(e.dataDir, id)
	if err != nil {
		return err
	}

	e.segments[id] = w
	e.order = append(e.order, id)
	e.activeID = id
	return nil
}

// maybeCompactLocked invokes compaction when the segment count exceeds
// CompactionThreshold, per spec.md §4.5. Must be called with mu held.
func (e *Engine) maybeCompactLocked() error {
	if len(e.order) <= e.opts.CompactionThreshold {
		return nil
	}
	return e.compactLocked()
}

// compactLocked merges every segment but the active tail, then refreshes
// the segment table to match the result: rewritten segments get their
// handle closed and reopened (a rename leaves any existing handle pointing
// at the old, now-unlinked, inode), and fully-merged segments are dropped
// entirely. Must be called with mu held.
func (e *Engine) compactLocked() error {
	if len(e.order) < 2 {
		return nil
	}
	inputIDs := append([]uint64(nil), e.order[:len(e.order)-1]...)

	result, err := compaction.Compact(e.dataDir, inputIDs, e.keydir, e.opts.RolloverSize, e.allocateSegmentID, e.log)
	if err != nil {
		return err
	}

	for _, id := range result.RewrittenIDs {
		if old, ok := e.segments[id]; ok {
			_ = old.Close()
		}
		w, err := segment.OpenWriter(e.dataDir, id)
		if err != nil {
			return err
		}
		e.segments[id] = w
	}

	for _, id := range result.DeletedIDs {
		if old, ok := e.segments[id]; ok {
			_ = old.Close()
			delete(e.segments, id)
		}
	}

	newOrder := append([]uint64(nil), result.RewrittenIDs...)
	sort.Slice(newOrder, func(i, j int) bool { return newOrder[i] < newOrder[j] })
	newOrder = append(newOrder, e.activeID)
	e.order = newOrder

	if orphans, err := compaction.DetectOrphans(e.dataDir, e.order); err != nil {
		e.log.Warnw("failed to check for orphaned segment files after compaction", "error", err)
	} else if len(orphans) > 0 {
		e.log.Warnw("orphaned segment files found after compaction", "files", orphans)
	}

	return nil
}

// runCompactionTicker drives the optional idle-compaction supplement
// described in SPEC_FULL.md §4.4: compaction also runs on a fixed
// schedule, under the same lock and crash-safety contract as the
// synchronous threshold trigger, for processes that accumulate segments
// slower than CompactionThreshold.
func (e *Engine) runCompactionTicker(interval time.Duration) {
	defer close(e.tickerDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopTicker:
			return
		case <-ticker.C:
			e.mu.Lock()
			if len(e.order) >= 2 {
				if err := e.compactLocked(); err != nil {
					e.log.Errorw("idle compaction failed", "error", err)
				}
			}
			e.mu.Unlock()
		}
	}
}
