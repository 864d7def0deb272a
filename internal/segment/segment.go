// Package segment manages the append-only files that hold barrel's records.
//
// A segment is identified by a parsed sequence number, never by its
// filename string — spec.md's design notes call this out explicitly, and
// it matters because the sequence number is what gives segments their
// total age order (§3: "any record in segment i was written before any
// record in segment j for i < j"). The filename is derived from the ID,
// never the other way around, except when bootstrapping from an existing
// directory.
package segment

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// Extension is the suffix every segment file carries. It defaults to the
// value spec.md §6 specifies and is process-wide: barrel.Open reconfigures
// it via Configure when Options.SegmentExtension/SegmentIDWidth differ
// from the default, resolving spec.md §9 Open Question (c) in the
// "expose as a parameter" direction. Running two differently-configured
// stores in the same process is out of scope.
var Extension = ".bcd"

// idWidth is the zero-padded decimal width of a segment's sequence number
// in its filename, per spec.md §6.
var idWidth = 8

var namePattern = buildNamePattern(idWidth)

func buildNamePattern(width int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^(\d{%d})%s$`, width, regexp.QuoteMeta(Extension)))
}

// Configure overrides the segment filename's digit width and extension.
// It must be called, if at all, before any segment is named or parsed —
// ordinarily once, from the engine's Open, before it lists the data
// directory.
func Configure(extension string, width int) {
	Extension = extension
	idWidth = width
	namePattern = buildNamePattern(width)
}

// Name returns the canonical on-disk filename for segment id.
func Name(id uint64) string {
	return fmt.Sprintf("%0*d%s", idWidth, id, Extension)
}

// Path joins dir and the canonical filename for id.
func Path(dir string, id uint64) string {
	return filepath.Join(dir, Name(id))
}

// ParseID extracts the sequence number from filename, which must be exactly
// 8 zero-padded decimal digits followed by ".bcd". Any other name —
// including compaction temporaries — returns ok=false so the caller skips
// it rather than erroring, per spec.md §6.
func ParseID(filename string) (id uint64, ok bool) {
	m := namePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}

	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseIDOrError is ParseID for callers that need a structured error
// instead of a boolean when a name doesn't match the segment naming scheme.
func ParseIDOrError(filename string) (uint64, error) {
	id, ok := ParseID(filename)
	if !ok {
		return 0, pkgerrors.NewSegmentNameParseError(filename, nil)
	}
	return id, nil
}
