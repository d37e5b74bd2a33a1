package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFilerListRegularFilesSorted(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.epub"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mobi"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	files, err := OSFiler{}.List(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.mobi"),
		filepath.Join(dir, "b.epub"),
	}, files)
}

func TestOSFilerListMissingDirectory(t *testing.T) {
	_, err := OSFiler{}.List(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSFilerListEmptyDirectory(t *testing.T) {
	files, err := OSFiler{}.List(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOSFilerMoveCreatesDestination(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "book.epub")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	dstDir := filepath.Join(t.TempDir(), "sent") // does not exist yet

	require.NoError(t, OSFiler{}.Move(src, dstDir))

	moved, err := os.ReadFile(filepath.Join(dstDir, "book.epub"))
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), moved)

	_, err = os.Stat(src)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSFilerMoveMissingSource(t *testing.T) {
	err := OSFiler{}.Move(filepath.Join(t.TempDir(), "gone.epub"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
