// Package engine implements barrel's store engine (spec.md §4.4): it owns
// the segment table and the KeyDir, and exposes Open/Get/Set/Remove on top
// of internal/segment and internal/keydir, deciding when to roll over the
// active segment and when to invoke internal/compaction.
//
// The engine serializes every public operation through its own
// sync.RWMutex — reads take the read lock, Set/Remove/compaction take the
// write lock — so pkg/barrel can hand a single *Engine to callers sharing
// it across goroutines, per spec.md §5.
package engine

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mistlake/barrel/internal/keydir"
	"github.com/mistlake/barrel/internal/segment"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
	"github.com/mistlake/barrel/pkg/options"
)

// ErrEngineClosed is returned by any operation attempted after Close.
var ErrEngineClosed = errors.New("engine: operation failed: engine is closed")

// Engine is barrel's store engine: the segment table, the KeyDir, and the
// write/compaction policy layered on top of them.
type Engine struct {
	log     *zap.SugaredLogger
	opts    *options.Options
	dataDir string

	mu       sync.RWMutex
	keydir   *keydir.KeyDir
	segments map[uint64]*segment.Writer
	order    []uint64 // ascending segment ids; order[len(order)-1] is always the active tail
	activeID uint64
	counter  uint64
	nextSeg  uint64

	stopTicker chan struct{}
	tickerDone chan struct{}

	closed atomic.Bool
}

// Config holds the dependencies Open needs to build an Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// Open implements spec.md §4.4's open(dir) -> Store: it creates the data
// directory if needed, replays every existing segment to rebuild the
// KeyDir and recover the write counter, and starts the optional idle
// compaction ticker.
func Open(config *Config) (*Engine, error) {
	opts := config.Options
	if opts == nil {
		defaults := options.NewDefaultOptions()
		opts = &defaults
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	segment.Configure(opts.SegmentExtension, opts.SegmentIDWidth)

	if err := createDataDir(opts.DataDir); err != nil {
		return nil, err
	}

	e := &Engine{
		log:        config.Logger,
		opts:       opts,
		dataDir:    opts.DataDir,
		keydir:     keydir.New(config.Logger),
		segments:   make(map[uint64]*segment.Writer),
		stopTicker: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}

	if err := e.recover(); err != nil {
		return nil, err
	}

	if opts.CompactInterval > 0 {
		go e.runCompactionTicker(opts.CompactInterval)
	} else {
		close(e.tickerDone)
	}

	return e, nil
}

// recover implements the bootstrap half of spec.md §4.4 steps 2-5:
// discover existing segments, replay them into the KeyDir, and recover the
// counter and active segment.
func (e *Engine) recover() error {
	ids, err := listSegmentIDs(e.dataDir)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		w, err := segment.OpenWriter(e.dataDir, 0)
		if err != nil {
			return err
		}
		e.segments[0] = w
		e.order = []uint64{0}
		e.activeID = 0
		e.counter = 1
		e.nextSeg = 1
		return nil
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var maxTimestamp uint64
	sawAny := false

	for _, id := range ids {
		w, err := segment.OpenWriter(e.dataDir, id)
		if err != nil {
			return err
		}
		e.segments[id] = w
		e.order = append(e.order, id)

		scanner := segment.NewScanner(w.File(), 0)
		for scanner.Next() {
			rec := scanner.Record()
			sawAny = true
			if rec.Timestamp > maxTimestamp {
				maxTimestamp = rec.Timestamp
			}
			if rec.Tombstone {
				if _, err := e.keydir.Delete(rec.Key); err != nil {
					return err
				}
				continue
			}
			if err := e.keydir.Put(rec.Key, keydir.Pointer{
				SegmentID: id, Offset: scanner.Offset(), Timestamp: rec.Timestamp,
			}); err != nil {
				return err
			}
		}

		if err := scanner.Err(); err != nil {
			if scanner.TornTail() && id == ids[len(ids)-1] {
				e.log.Warnw("ignoring torn tail record at segment end", "segment_id", id)
			} else {
				return pkgerrors.NewSegmentCorruptedError(int(id), int(scanner.Offset()), err)
			}
		}
	}

	e.activeID = ids[len(ids)-1]
	e.nextSeg = ids[len(ids)-1] + 1
	if sawAny {
		e.counter = maxTimestamp + 1
	} else {
		e.counter = 1
	}
	return nil
}

// allocateSegmentID returns the next unused segment sequence number. Must
// be called with mu held.
func (e *Engine) allocateSegmentID() uint64 {
	id := e.nextSeg
	e.nextSeg++
	return id
}

// Close flushes and closes every open segment, closes the KeyDir, and
// stops the idle compaction ticker. Safe to call more than once.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(e.stopTicker)
	<-e.tickerDone

	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for _, w := range e.segments {
		if err := w.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := e.keydir.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func createDataDir(dir string) error {
	if err := ensureDir(dir); err != nil {
		return pkgerrors.ClassifyDirectoryCreationError(err, dir)
	}
	return nil
}
