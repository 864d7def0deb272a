package keydir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mistlake/barrel/internal/keydir"
)

func newTestKeyDir(t *testing.T) *keydir.KeyDir {
	t.Helper()
	return keydir.New(zap.NewNop().Sugar())
}

func TestPutThenGetReturnsTheSamePointer(t *testing.T) {
	k := newTestKeyDir(t)

	ptr := keydir.Pointer{SegmentID: 1, Offset: 10, Timestamp: 5}
	require.NoError(t, k.Put("a", ptr))

	got, ok, err := k.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ptr, got)
}

func TestGetMissingKeyReturnsNotOK(t *testing.T) {
	k := newTestKeyDir(t)

	_, ok, err := k.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	k := newTestKeyDir(t)

	require.NoError(t, k.Put("a", keydir.Pointer{SegmentID: 1, Offset: 0, Timestamp: 1}))
	require.NoError(t, k.Put("a", keydir.Pointer{SegmentID: 2, Offset: 40, Timestamp: 2}))

	got, ok, err := k.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.SegmentID)
	assert.EqualValues(t, 40, got.Offset)
}

func TestDeleteRemovesEntryAndReportsPresence(t *testing.T) {
	k := newTestKeyDir(t)
	require.NoError(t, k.Put("a", keydir.Pointer{SegmentID: 1}))

	existed, err := k.Delete("a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = k.Delete("a")
	require.NoError(t, err)
	assert.False(t, existed)

	_, ok, err := k.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLenReflectsLiveKeys(t *testing.T) {
	k := newTestKeyDir(t)
	require.NoError(t, k.Put("a", keydir.Pointer{}))
	require.NoError(t, k.Put("b", keydir.Pointer{}))
	assert.Equal(t, 2, k.Len())

	_, err := k.Delete("a")
	require.NoError(t, err)
	assert.Equal(t, 1, k.Len())
}

func TestForEachVisitsEveryLiveKey(t *testing.T) {
	k := newTestKeyDir(t)
	want := map[string]keydir.Pointer{
		"a": {SegmentID: 1, Offset: 0},
		"b": {SegmentID: 1, Offset: 20},
	}
	for key, ptr := range want {
		require.NoError(t, k.Put(key, ptr))
	}

	got := make(map[string]keydir.Pointer)
	k.ForEach(func(key string, ptr keydir.Pointer) {
		got[key] = ptr
	})
	assert.Equal(t, want, got)
}

func TestSwapAppliesUpdatesAndRemovals(t *testing.T) {
	k := newTestKeyDir(t)
	require.NoError(t, k.Put("a", keydir.Pointer{SegmentID: 1, Offset: 0}))
	require.NoError(t, k.Put("b", keydir.Pointer{SegmentID: 1, Offset: 20}))

	k.Swap(
		map[string]keydir.Pointer{"a": {SegmentID: 9, Offset: 100}},
		map[string]struct{}{"b": {}},
	)

	got, ok, err := k.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 9, got.SegmentID)

	_, ok, err = k.Get("b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOperationsAfterCloseReturnError(t *testing.T) {
	k := newTestKeyDir(t)
	require.NoError(t, k.Put("a", keydir.Pointer{}))
	require.NoError(t, k.Close())
	require.NoError(t, k.Close()) // idempotent

	err := k.Put("b", keydir.Pointer{})
	assert.Error(t, err)

	_, _, err = k.Get("a")
	assert.Error(t, err)
}
