package errors

// StorageError is a specialized error type for storage-related operations.
// It embeds baseError to inherit all the standard error functionality, then adds
// storage-specific fields that help pinpoint exactly where problems occurred.
type StorageError struct {
	*baseError
	segmentId int    // Which segment was being accessed when the error occurred.
	offset    int    // Byte offset within the segment where the problem happened.
	fileName  string // Name of the file that caused the issue.
	path      string // Path of the file that caused the issue.
}

// NewStorageError creates a new storage-specific error.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithDetail adds contextual information while maintaining the StorageError type.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithSegmentID sets which storage segment was involved in the error.
func (se *StorageError) WithSegmentID(id int) *StorageError {
	se.segmentId = id
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int) *StorageError {
	se.offset = offset
	return se
}

// WithFileName captures which file was being processed when the error occurred.
func (se *StorageError) WithFileName(fileName string) *StorageError {
	se.fileName = fileName
	return se
}

// WithPath captures which path was being processed when the error occurred.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// SegmentId returns the segment identifier where the error occurred.
func (se *StorageError) SegmentId() int {
	return se.segmentId
}

// Offset returns the byte offset within the segment where the error happened.
// Combined with SegmentId, this gives you the exact location of the problem.
func (se *StorageError) Offset() int {
	return se.offset
}

// FileName returns the name of the file that was being processed.
func (se *StorageError) FileName() string {
	return se.fileName
}

// Path returns the path of the file that was being processed.
func (se *StorageError) Path() string {
	return se.path
}

// NewChecksumMismatchError creates a storage error for a record whose stored
// checksum doesn't match the checksum computed over its decoded bytes. This
// is always corruption, never a torn tail, because the frame was read in full.
func NewChecksumMismatchError(segmentID int, offset int) *StorageError {
	return NewStorageError(
		nil, ErrorCodeChecksumMismatch, "record checksum mismatch",
	).WithSegmentID(segmentID).WithOffset(offset).
		WithDetail("operation", "record_decode")
}

// NewSegmentCorruptedError creates a storage error for a segment that failed
// to decode in a way that isn't explained by a torn tail, e.g. a length
// prefix that claims a payload larger than the remaining file content in the
// middle of a segment rather than at its end.
func NewSegmentCorruptedError(segmentID int, offset int, cause error) *StorageError {
	return NewStorageError(
		cause, ErrorCodeSegmentCorrupted, "segment record decode failed before end of segment",
	).WithSegmentID(segmentID).WithOffset(offset).
		WithDetail("operation", "record_decode")
}
