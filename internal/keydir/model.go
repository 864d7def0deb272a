// Package keydir implements barrel's in-memory index: the KeyDir that maps
// every live key to the exact segment and offset its current value lives
// at, per spec.md §3/§4.4.
//
// The KeyDir is rebuilt from the segment files on every Open and kept in
// sync with every Set and Remove thereafter; it is never itself persisted.
// Losing it costs a startup scan, nothing else.
package keydir

// Pointer is everything the KeyDir keeps about one live key: where its
// current record lives and when it was written. Offset is the position of
// the record's length prefix within its segment, the same value
// segment.Writer.Append returns.
type Pointer struct {
	SegmentID uint64
	Offset    int64
	Timestamp uint64
}
