package segment_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistlake/barrel/internal/record"
	"github.com/mistlake/barrel/internal/segment"
)

func writeRecords(t *testing.T, dir string, id uint64, recs []record.Record) []int64 {
	t.Helper()

	w, err := segment.OpenWriter(dir, id)
	require.NoError(t, err)
	defer w.Close()

	offsets := make([]int64, len(recs))
	for i, r := range recs {
		off, err := w.Append(r)
		require.NoError(t, err)
		offsets[i] = off
	}
	require.NoError(t, w.Sync())
	return offsets
}

func TestReadAtDecodesRecordAtOffset(t *testing.T) {
	dir := t.TempDir()
	recs := []record.Record{
		{Timestamp: 1, Key: "a", Value: "1"},
		{Timestamp: 2, Key: "b", Value: "2"},
	}
	offsets := writeRecords(t, dir, 1, recs)

	f, err := os.Open(segment.Path(dir, 1))
	require.NoError(t, err)
	defer f.Close()

	for i, off := range offsets {
		got, _, err := segment.ReadAt(f, off)
		require.NoError(t, err)
		assert.Equal(t, recs[i], got)
	}
}

func TestScannerReplaysAllRecordsInOrder(t *testing.T) {
	dir := t.TempDir()
	recs := []record.Record{
		{Timestamp: 1, Key: "a", Value: "1"},
		{Timestamp: 2, Key: "b", Value: "2"},
		{Timestamp: 3, Tombstone: true, Key: "a"},
	}
	offsets := writeRecords(t, dir, 1, recs)

	f, err := os.Open(segment.Path(dir, 1))
	require.NoError(t, err)
	defer f.Close()

	s := segment.NewScanner(f, 0)
	var got []record.Record
	var gotOffsets []int64
	for s.Next() {
		got = append(got, s.Record())
		gotOffsets = append(gotOffsets, s.Offset())
	}
	require.NoError(t, s.Err())
	assert.False(t, s.TornTail())
	assert.Equal(t, recs, got)
	assert.Equal(t, offsets, gotOffsets)
}

func TestScannerStartingMidSegment(t *testing.T) {
	dir := t.TempDir()
	recs := []record.Record{
		{Timestamp: 1, Key: "a", Value: "1"},
		{Timestamp: 2, Key: "b", Value: "2"},
	}
	offsets := writeRecords(t, dir, 1, recs)

	f, err := os.Open(segment.Path(dir, 1))
	require.NoError(t, err)
	defer f.Close()

	s := segment.NewScanner(f, offsets[1])
	require.True(t, s.Next())
	assert.Equal(t, recs[1], s.Record())
	require.False(t, s.Next())
	require.NoError(t, s.Err())
}

func TestScannerTolersTornTailAtEndOfSegment(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, 1, []record.Record{{Timestamp: 1, Key: "a", Value: "1"}})

	path := segment.Path(dir, 1)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	s := segment.NewScanner(f, 0)
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), record.ErrTornTail)
	assert.True(t, s.TornTail())
}

func TestScannerDetectsChecksumCorruption(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, dir, 1, []record.Record{{Timestamp: 1, Key: "a", Value: "1"}})

	path := segment.Path(dir, 1)
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)

	info, err := f.Stat()
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xFF}, info.Size()-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	s := segment.NewScanner(f, 0)
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), record.ErrChecksumMismatch)
	assert.False(t, s.TornTail())
}
