package compaction

import (
	"os"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/mistlake/barrel/internal/segment"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// DetectOrphans lists segment-named files in dir that aren't in expected —
// the engine's segment table right after a compaction run. A non-empty
// result means compaction (or a prior crash) left behind a file the engine
// has lost track of; it is surfaced as a log warning rather than acted on
// automatically, since deleting an unexpected file that turns out to still
// be referenced would be far worse than leaving it alone.
func DetectOrphans(dir string, expected []uint64) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to read data directory").
			WithPath(dir)
	}

	expectedSet := mapset.NewSet[uint64]()
	for _, id := range expected {
		expectedSet.Add(id)
	}

	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := segment.ParseID(entry.Name())
		if !ok {
			continue // not a canonical segment name; e.g. a stale compaction temp file
		}
		if !expectedSet.Contains(id) {
			orphans = append(orphans, entry.Name())
		}
	}
	return orphans, nil
}
