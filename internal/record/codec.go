package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
)

// lengthPrefixSize is the width of the big-endian "payload length" header
// that precedes every frame on disk.
const lengthPrefixSize = 8

// checksumSize is the width of the xxh3 checksum stored ahead of the
// msgpack-encoded record within the payload.
const checksumSize = 8

// ErrEOF is returned by Decode when offset points at the clean end of a
// segment: zero bytes were available to read. Callers use this to stop
// scanning a segment, as opposed to ErrCorrupted which means a frame
// started but could not be completed or verified.
var ErrEOF = errors.New("record: end of segment")

// ErrTornTail is returned by Decode when a frame's length prefix or payload
// was only partially written — the bytes available are a proper prefix of a
// well-formed frame, consistent with a crash mid-append. Whether this is
// tolerated (only at a segment's tail) or treated as corruption (anywhere
// else) is a decision made by the caller, since only the caller knows
// whether offset is inside the live segment or past its end.
var ErrTornTail = errors.New("record: truncated frame")

// ErrChecksumMismatch is returned by Decode when a complete frame's stored
// checksum doesn't match the checksum computed over its payload bytes. This
// is always corruption: the frame was not truncated, its contents are
// simply wrong.
var ErrChecksumMismatch = errors.New("record: checksum mismatch")

// Encode serializes r into the bytes stored between the length prefix and
// the next frame: an 8-byte xxh3 checksum followed by the msgpack encoding
// of r. Encode is infallible for well-formed records (non-empty Key).
func Encode(r Record) []byte {
	payload, err := msgpack.Marshal(toWire(r))
	if err != nil {
		// toWire only ever produces primitives msgpack always knows how to
		// encode; a failure here means the msgpack library itself is broken.
		panic(fmt.Sprintf("record: encode record: %v", err))
	}

	checksum := xxh3.Hash(payload)

	buf := make([]byte, checksumSize+len(payload))
	binary.BigEndian.PutUint64(buf[:checksumSize], checksum)
	copy(buf[checksumSize:], payload)
	return buf
}

// FrameLength returns the total number of bytes Append writes to disk for r:
// the length prefix plus the encoded payload.
func FrameLength(r Record) int64 {
	return lengthPrefixSize + int64(len(Encode(r)))
}

// Decode reads one frame from r starting at offset: an 8-byte big-endian
// payload length, then that many payload bytes. It returns the decoded
// record and the offset of the next frame.
//
//   - Zero bytes available at offset is ErrEOF: a clean segment boundary.
//   - A short read of the length prefix or the payload is ErrTornTail: the
//     frame was only partially written, consistent with a crash mid-append.
//   - A complete frame whose checksum doesn't verify is ErrChecksumMismatch.
func Decode(r io.ReaderAt, offset int64) (Record, int64, error) {
	var lenBuf [lengthPrefixSize]byte
	n, err := r.ReadAt(lenBuf[:], offset)
	if n == 0 && (err == io.EOF || err == nil) {
		return Record{}, offset, ErrEOF
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, offset, ErrTornTail
		}
		return Record{}, offset, fmt.Errorf("record: read length prefix: %w", err)
	}

	payloadLen := binary.BigEndian.Uint64(lenBuf[:])
	if payloadLen < checksumSize {
		return Record{}, offset, ErrTornTail
	}

	payload := make([]byte, payloadLen)
	if _, err := r.ReadAt(payload, offset+lengthPrefixSize); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, offset, ErrTornTail
		}
		return Record{}, offset, fmt.Errorf("record: read payload: %w", err)
	}

	storedChecksum := binary.BigEndian.Uint64(payload[:checksumSize])
	body := payload[checksumSize:]
	if computed := xxh3.Hash(body); computed != storedChecksum {
		return Record{}, offset, ErrChecksumMismatch
	}

	var w wireRecord
	if err := msgpack.Unmarshal(body, &w); err != nil {
		return Record{}, offset, fmt.Errorf("record: decode payload: %w", err)
	}

	nextOffset := offset + lengthPrefixSize + int64(payloadLen)
	return w.toRecord(), nextOffset, nil
}

// DecodeFrom reads one frame sequentially from r, the same length-prefix-
// then-payload shape Decode reads via ReaderAt. It exists for scanning a
// segment forward through a buffered, cursor-based reader, where asking for
// an io.ReaderAt would mean either disturbing the segment's shared file
// cursor or adapting a sequential reader to look random-access. It returns
// the same sentinel errors as Decode and the number of bytes consumed.
func DecodeFrom(r io.Reader) (Record, int64, error) {
	var lenBuf [lengthPrefixSize]byte
	n, err := io.ReadFull(r, lenBuf[:])
	if n == 0 && err == io.EOF {
		return Record{}, 0, ErrEOF
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, 0, ErrTornTail
		}
		return Record{}, 0, fmt.Errorf("record: read length prefix: %w", err)
	}

	payloadLen := binary.BigEndian.Uint64(lenBuf[:])
	if payloadLen < checksumSize {
		return Record{}, 0, ErrTornTail
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, 0, ErrTornTail
		}
		return Record{}, 0, fmt.Errorf("record: read payload: %w", err)
	}

	storedChecksum := binary.BigEndian.Uint64(payload[:checksumSize])
	body := payload[checksumSize:]
	if computed := xxh3.Hash(body); computed != storedChecksum {
		return Record{}, 0, ErrChecksumMismatch
	}

	var w wireRecord
	if err := msgpack.Unmarshal(body, &w); err != nil {
		return Record{}, 0, fmt.Errorf("record: decode payload: %w", err)
	}

	consumed := int64(lengthPrefixSize) + int64(payloadLen)
	return w.toRecord(), consumed, nil
}
