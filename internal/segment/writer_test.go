package segment_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mistlake/barrel/internal/record"
	"github.com/mistlake/barrel/internal/segment"
)

func TestWriterAppendTracksOffsetsAndSize(t *testing.T) {
	dir := t.TempDir()

	w, err := segment.OpenWriter(dir, 1)
	require.NoError(t, err)
	defer w.Close()

	off1, err := w.Append(record.Record{Timestamp: 1, Key: "a", Value: "1"})
	require.NoError(t, err)
	require.Zero(t, off1)

	sizeAfterFirst := w.Size()
	require.Greater(t, sizeAfterFirst, int64(0))

	off2, err := w.Append(record.Record{Timestamp: 2, Key: "b", Value: "2"})
	require.NoError(t, err)
	require.Equal(t, sizeAfterFirst, off2)
	require.Greater(t, w.Size(), sizeAfterFirst)
}

func TestWriterReopenAppendsAtExistingEnd(t *testing.T) {
	dir := t.TempDir()

	w1, err := segment.OpenWriter(dir, 1)
	require.NoError(t, err)
	_, err = w1.Append(record.Record{Timestamp: 1, Key: "a", Value: "1"})
	require.NoError(t, err)
	require.NoError(t, w1.Sync())
	require.NoError(t, w1.Close())

	w2, err := segment.OpenWriter(dir, 1)
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, w1.Size(), w2.Size())

	off, err := w2.Append(record.Record{Timestamp: 2, Key: "b", Value: "2"})
	require.NoError(t, err)
	require.Equal(t, w1.Size(), off)
}

func TestOpenWriterUsesCanonicalPath(t *testing.T) {
	dir := t.TempDir()

	w, err := segment.OpenWriter(dir, 3)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(segment.Path(dir, 3))
	require.NoError(t, err)
}
