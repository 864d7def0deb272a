// Package options provides the functional-options configuration surface
// for barrel's store engine: data directory, rollover and compaction
// thresholds, the optional idle-compaction interval, and the segment
// naming scheme.
package options

import (
	"strings"
	"time"

	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// Options holds barrel's full configuration. Zero-value Options is not
// meaningful on its own; callers start from the defaults (NewDefaultOptions
// or WithDefaultOptions) plus overrides, which is what Open does.
type Options struct {
	// DataDir is the directory barrel stores its segments in. Created on
	// Open if it doesn't already exist.
	DataDir string `json:"dataDir"`

	// RolloverSize is the byte threshold past which the active segment is
	// retired and a fresh one takes over, per spec.md §4.4.
	RolloverSize int64 `json:"rolloverSize"`

	// CompactionThreshold is the segment count past which a write
	// synchronously triggers compaction, per spec.md §4.5.
	CompactionThreshold int `json:"compactionThreshold"`

	// CompactInterval additionally runs compaction on a fixed schedule
	// regardless of segment count, for processes that stay up long
	// enough to accumulate small segments slower than the threshold.
	// Zero disables it.
	CompactInterval time.Duration `json:"compactInterval"`

	// SegmentExtension is the filename suffix assigned to segment files.
	SegmentExtension string `json:"segmentExtension"`

	// SegmentIDWidth is the zero-padded decimal width of a segment's
	// sequence number in its filename.
	SegmentIDWidth int `json:"segmentIdWidth"`
}

// OptionFunc mutates an in-progress Options during construction.
type OptionFunc func(*Options)

// WithDefaultOptions seeds o with barrel's default configuration, the same
// values Open starts from (via NewDefaultOptions) before it applies any
// caller-supplied OptionFunc.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir overrides the data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithRolloverSize overrides the active-segment rollover threshold, in
// bytes. Values at or below zero are ignored.
func WithRolloverSize(size int64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.RolloverSize = size
		}
	}
}

// WithCompactionThreshold overrides the segment count that triggers
// synchronous compaction. Values at or below zero are ignored.
func WithCompactionThreshold(threshold int) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.CompactionThreshold = threshold
		}
	}
}

// WithCompactInterval overrides the idle-ticker compaction period. Zero
// disables the ticker entirely; negative values are ignored.
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval >= 0 {
			o.CompactInterval = interval
		}
	}
}

// WithSegmentExtension overrides the filename suffix assigned to segment
// files.
func WithSegmentExtension(extension string) OptionFunc {
	return func(o *Options) {
		extension = strings.TrimSpace(extension)
		if extension != "" {
			o.SegmentExtension = extension
		}
	}
}

// WithSegmentIDWidth overrides the zero-padded decimal width of a
// segment's sequence number in its filename. Values at or below zero are
// ignored.
func WithSegmentIDWidth(width int) OptionFunc {
	return func(o *Options) {
		if width > 0 {
			o.SegmentIDWidth = width
		}
	}
}

// Validate reports the first configuration problem found in o, as a
// *errors.ValidationError naming the offending field. The With* builders
// above silently ignore an out-of-range override so a caller stacking
// OptionFuncs can't corrupt an already-valid Options, but Open accepts an
// Options value built any way a caller likes — including by hand, with
// exported fields assigned directly — so it calls Validate before trusting
// one.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return pkgerrors.NewRequiredFieldError("DataDir")
	}
	if o.RolloverSize <= 0 {
		return pkgerrors.NewFieldRangeError("RolloverSize", o.RolloverSize, 1, nil)
	}
	if o.CompactionThreshold <= 0 {
		return pkgerrors.NewFieldRangeError("CompactionThreshold", o.CompactionThreshold, 1, nil)
	}
	if o.CompactInterval < 0 {
		return pkgerrors.NewFieldRangeError("CompactInterval", o.CompactInterval, 0, nil)
	}
	if !strings.HasPrefix(o.SegmentExtension, ".") {
		return pkgerrors.NewFieldFormatError("SegmentExtension", o.SegmentExtension, "a string beginning with '.'")
	}
	if o.SegmentIDWidth <= 0 {
		return pkgerrors.NewConfigurationValidationError("SegmentIDWidth", "must be a positive digit width")
	}
	return nil
}
