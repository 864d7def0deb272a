package engine

import (
	"os"
	"path/filepath"

	"github.com/mistlake/barrel/internal/segment"
	"github.com/mistlake/barrel/pkg/filesys"
)

// ensureDir creates dir (and any missing parents) if it doesn't already
// exist, per spec.md §4.4 step 1.
func ensureDir(dir string) error {
	return filesys.CreateDir(dir, 0755, true)
}

// listSegmentIDs enumerates dir's regular files whose name matches the
// segment naming scheme and returns their parsed sequence numbers. Files
// that don't match — including stray compaction temporaries left by a
// crash mid-merge — are silently skipped, per spec.md §4.4 step 2/§6.
func listSegmentIDs(dir string) ([]uint64, error) {
	paths, err := filesys.ReadDir(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}

	var ids []uint64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		id, ok := segment.ParseID(filepath.Base(path))
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
