package sorter

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koloyyee/java-sorter/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestMover() *Mover {
	return NewMover(slog.New(slog.DiscardHandler))
}

func TestMover_Move_ExistingDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "a.txt")
	writeFile(t, file, "hello")

	target, err := newTestMover().Move(file, dst)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dst, "a.txt"), target)
	assert.NoFileExists(t, file)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMover_Move_CreatesOneLevel(t *testing.T) {
	src := t.TempDir()
	desktop := t.TempDir()
	images := filepath.Join(desktop, ImagesDirName)
	file := filepath.Join(src, "photo.png")
	writeFile(t, file, "png")

	target, err := newTestMover().Move(file, images)
	require.NoError(t, err)

	assert.DirExists(t, images)
	assert.FileExists(t, target)
	assert.NoFileExists(t, file)
}

func TestMover_Move_MissingAncestor(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	dest := filepath.Join(root, "a", "b")
	file := filepath.Join(src, "photo.png")
	writeFile(t, file, "png")

	_, err := newTestMover().Move(file, dest)
	require.Error(t, err)

	assert.ErrorIs(t, err, errors.ErrDirectoryCreation)
	assert.FileExists(t, file, "source must stay in place")
	assert.NoDirExists(t, filepath.Join(root, "a"))
}

func TestMover_Move_DestinationIsFile(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	dest := filepath.Join(root, "images")
	writeFile(t, dest, "not a dir")
	file := filepath.Join(src, "photo.png")
	writeFile(t, file, "png")

	_, err := newTestMover().Move(file, dest)

	assert.ErrorIs(t, err, errors.ErrDirectoryCreation)
	assert.FileExists(t, file)
}

func TestMover_Move_ReplacesExisting(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "report.txt")
	writeFile(t, file, "new")
	writeFile(t, filepath.Join(dst, "report.txt"), "old")

	target, err := newTestMover().Move(file, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.NoFileExists(t, file)
}

func TestMover_Move_SourceMissing(t *testing.T) {
	dst := t.TempDir()

	_, err := newTestMover().Move(filepath.Join(t.TempDir(), "gone.txt"), dst)

	assert.ErrorIs(t, err, errors.ErrSourceMissing)
	assert.Equal(t, errors.CodeSourceMissing, errors.CodeOf(err))
}

func TestMover_Move_SameDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	writeFile(t, file, "stay")

	target, err := newTestMover().Move(file, dir)
	require.NoError(t, err)

	assert.Equal(t, file, target)
	assert.FileExists(t, file)
}

func TestMover_Move_OntoDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	file := filepath.Join(src, "clash")
	writeFile(t, file, "data")
	require.NoError(t, os.Mkdir(filepath.Join(dst, "clash"), 0o755))
	// A non-empty directory can never be replaced by a file.
	writeFile(t, filepath.Join(dst, "clash", "inner"), "x")

	_, err := newTestMover().Move(file, dst)

	assert.ErrorIs(t, err, errors.ErrMove)
	assert.FileExists(t, file)
}
