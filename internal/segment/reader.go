package segment

import (
	"bufio"
	"errors"
	"io"

	"github.com/mistlake/barrel/internal/record"
)

// maxScanSectionSize is used to bound the io.SectionReader a Scanner reads
// through. A segment can never legitimately exceed this, so the bound is
// effectively "the rest of the file" without needing a live size query.
const maxScanSectionSize = 1<<63 - 1

// ReadAt decodes exactly the record starting at offset in src, the
// io.ReaderAt for one segment's file. It is used by Get, which must touch
// only the single record the KeyDir points at.
func ReadAt(src io.ReaderAt, offset int64) (record.Record, int64, error) {
	return record.Decode(src, offset)
}

// Scanner replays a segment from a starting offset, yielding one record per
// Next call until it reaches a clean end of segment or a decode error. It
// wraps a bufio.Reader over an io.SectionReader so repeated scans never
// disturb the underlying file handle's own read/write cursor — the same
// discipline Epokhe-bitdb's recordScanner uses.
type Scanner struct {
	reader *bufio.Reader

	start int64 // offset of the record most recently produced by Next, or of the frame the scan stopped at
	next  int64 // offset Next will read from next

	rec record.Record
	err error
}

// NewScanner starts a Scanner over src at the given offset.
func NewScanner(src io.ReaderAt, offset int64) *Scanner {
	sr := io.NewSectionReader(src, offset, maxScanSectionSize)
	return &Scanner{reader: bufio.NewReader(sr), next: offset}
}

// Next advances the scanner to the next record, returning false at a clean
// end of segment or once an error has occurred. Callers must check Err
// after Next returns false to distinguish the two.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}

	rec, consumed, err := record.DecodeFrom(s.reader)
	if err != nil {
		s.err = err
		s.start = s.next
		return false
	}

	s.rec = rec
	s.start = s.next
	s.next += consumed
	return true
}

// Record returns the record produced by the most recent successful Next.
func (s *Scanner) Record() record.Record { return s.rec }

// Offset returns the starting offset of the record most recently produced
// by Next. Once Next has returned false, it is the offset of the frame the
// scan stopped at.
func (s *Scanner) Offset() int64 { return s.start }

// Err returns the error that stopped the scan: nil for a clean boundary
// (record.ErrEOF), record.ErrTornTail for a truncated final frame, or any
// other error for corruption that occurred before the end of the segment.
func (s *Scanner) Err() error {
	if errors.Is(s.err, record.ErrEOF) {
		return nil
	}
	return s.err
}

// TornTail reports whether the scan stopped because of a truncated final
// frame, as opposed to a clean boundary or genuine corruption.
func (s *Scanner) TornTail() bool {
	return errors.Is(s.err, record.ErrTornTail)
}
