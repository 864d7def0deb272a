package barrel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistlake/barrel/pkg/barrel"
	"github.com/mistlake/barrel/pkg/options"
)

func TestOpenSetGetRemove(t *testing.T) {
	dir := t.TempDir()

	db, err := barrel.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set("a", "1"))

	val, ok, err := db.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)

	require.NoError(t, db.Remove("a"))

	_, ok, err = db.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingKeyIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	db, err := barrel.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	val, ok, err := db.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, val)
}

func TestOpenAcceptsOptions(t *testing.T) {
	dir := t.TempDir()

	db, err := barrel.Open(dir, options.WithRolloverSize(64), options.WithCompactionThreshold(3))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Set("a", "1"))
	val, ok, err := db.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := barrel.Open(dir)
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()

	db, err := barrel.Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Set("a", "1"))
	require.NoError(t, db.Close())

	reopened, err := barrel.Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	val, ok, err := reopened.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", val)
}
