package filesys_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistlake/barrel/pkg/filesys"
)

func TestCreateDirMakesMissingParents(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c")

	require.NoError(t, filesys.CreateDir(target, 0755, true))

	ok, err := filesys.Exists(target)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateDirWithoutForceFailsIfExists(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, filesys.CreateDir(root, 0755, true))
	assert.Error(t, filesys.CreateDir(root, 0755, false))
}

func TestCreateDirRejectsExistingFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	require.NoError(t, filesys.WriteFile(file, 0644, []byte("x")))

	err := filesys.CreateDir(file, 0755, true)
	assert.ErrorIs(t, err, filesys.ErrIsNotDir)
}

func TestWriteFileThenReadFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")

	require.NoError(t, filesys.WriteFile(path, 0644, []byte("hello")))

	contents, err := filesys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(contents))
}

func TestDeleteFileRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, filesys.WriteFile(path, 0644, []byte("x")))

	require.NoError(t, filesys.DeleteFile(path))

	ok, err := filesys.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExistsReportsFalseForMissingPath(t *testing.T) {
	ok, err := filesys.Exists(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadDirMatchesGlobPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, filesys.WriteFile(filepath.Join(dir, "a.bcd"), 0644, []byte("1")))
	require.NoError(t, filesys.WriteFile(filepath.Join(dir, "b.txt"), 0644, []byte("2")))

	paths, err := filesys.ReadDir(filepath.Join(dir, "*.bcd"))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "a.bcd"), paths[0])
}
