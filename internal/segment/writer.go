package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mistlake/barrel/internal/record"
	pkgerrors "github.com/mistlake/barrel/pkg/errors"
)

// Writer is an append-only writer for one segment's active tail. It does no
// buffering of its own: Append hands each frame to the operating system in a
// single write call; durability to
// stable storage is deferred to an explicit Sync, per spec.md §4.3/§5.
type Writer struct {
	id   uint64
	path string
	file *os.File
	size int64
}

// OpenWriter opens id's segment file for read+append, creating it if it
// doesn't already exist, and positions it at the current end of file.
func OpenWriter(dir string, id uint64) (*Writer, error) {
	path := Path(dir, id)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, pkgerrors.ClassifyFileOpenError(err, path, Name(id))
	}

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to seek to end of segment").
			WithSegmentID(int(id)).WithPath(path).WithFileName(Name(id))
	}

	return &Writer{id: id, path: path, file: file, size: size}, nil
}

// ID returns the sequence number of the segment this writer appends to.
func (w *Writer) ID() uint64 { return w.id }

// Size returns the current size of the segment in bytes.
func (w *Writer) Size() int64 { return w.size }

// File returns the underlying open file handle, for use as the
// io.ReaderAt that ReadAt and a Scanner read from.
func (w *Writer) File() *os.File { return w.file }

// Append writes r as a new frame at the current end of the segment and
// returns the offset of its length prefix — the value stored in the KeyDir.
func (w *Writer) Append(r record.Record) (int64, error) {
	payload := record.Encode(r)

	frame := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(frame[:8], uint64(len(payload)))
	copy(frame[8:], payload)

	startOffset := w.size
	if _, err := w.file.Write(frame); err != nil {
		return 0, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to append record").
			WithSegmentID(int(w.id)).WithOffset(int(startOffset)).WithPath(w.path).WithFileName(Name(w.id))
	}

	w.size += int64(len(frame))
	return startOffset, nil
}

// Sync flushes the segment's data to stable storage.
func (w *Writer) Sync() error {
	if err := w.file.Sync(); err != nil {
		return pkgerrors.ClassifySyncError(err, Name(w.id), w.path, int(w.size))
	}
	return nil
}

// Close closes the underlying file handle without syncing; callers that
// need durability must Sync first.
func (w *Writer) Close() error {
	return w.file.Close()
}

// tempSegmentPattern is the name compaction output files carry until they
// are renamed into place. It deliberately cannot match namePattern, so a
// crash between scan-completion and rename leaves it ignored by the next
// Open, per spec.md §4.5.
const tempSegmentPattern = "compact-%04d.bcd.tmp"

// OpenTempWriter opens a fresh output file for the compactor, named so it
// is never mistaken for a live segment. seq only needs to be unique among
// the temp files a single compaction run creates.
func OpenTempWriter(dir string, seq int) (*Writer, error) {
	path := filepath.Join(dir, fmt.Sprintf(tempSegmentPattern, seq))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pkgerrors.ClassifyFileOpenError(err, path, filepath.Base(path))
	}

	return &Writer{path: path, file: file}, nil
}

// RenameTo closes w and atomically renames its file to id's canonical
// segment path in dir, replacing whatever was there. The caller is
// responsible for ensuring no other open handle still references the
// replaced file's old name by the time callers next read it.
func (w *Writer) RenameTo(dir string, id uint64) error {
	if err := w.file.Close(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to close compaction output before rename").
			WithPath(w.path)
	}

	target := Path(dir, id)
	if err := os.Rename(w.path, target); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to rename compaction output into place").
			WithSegmentID(int(id)).WithPath(target).WithFileName(Name(id))
	}
	return nil
}

// Abort closes w and removes its temp file, used when a compaction run
// fails partway through and must not leave stray output behind.
func (w *Writer) Abort() error {
	_ = w.file.Close()
	return os.Remove(w.path)
}
