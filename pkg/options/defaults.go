package options

import "time"

const (
	// DefaultDataDir is where barrel stores its segments when the caller
	// doesn't override it.
	DefaultDataDir = "./barrel-data"

	// DefaultRolloverSize is the byte threshold spec.md §4.4 illustrates:
	// once the active segment grows past it, the next write rolls to a
	// fresh segment. Deliberately small so tests exercise multi-segment
	// behavior without writing megabytes of fixtures; production
	// deployments should raise it.
	DefaultRolloverSize int64 = 1000

	// DefaultCompactionThreshold is the segment count spec.md §4.5
	// illustrates: once the engine holds more segments than this after a
	// write, it compacts.
	DefaultCompactionThreshold = 6

	// DefaultCompactInterval is the idle-ticker compaction period. Zero
	// disables it; only the synchronous threshold trigger runs by default.
	DefaultCompactInterval time.Duration = 0

	// DefaultSegmentExtension is the fixed suffix spec.md §6 assigns to
	// segment files.
	DefaultSegmentExtension = ".bcd"

	// DefaultSegmentIDWidth is the zero-padded decimal width of a
	// segment's sequence number in its filename, per spec.md §6.
	DefaultSegmentIDWidth = 8
)

// defaultOptions holds barrel's out-of-the-box configuration.
var defaultOptions = Options{
	DataDir:             DefaultDataDir,
	RolloverSize:        DefaultRolloverSize,
	CompactionThreshold: DefaultCompactionThreshold,
	CompactInterval:     DefaultCompactInterval,
	SegmentExtension:    DefaultSegmentExtension,
	SegmentIDWidth:      DefaultSegmentIDWidth,
}

// NewDefaultOptions returns barrel's default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
