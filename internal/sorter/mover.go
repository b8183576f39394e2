package sorter

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/koloyyee/java-sorter/internal/errors"
)

// Executor performs the filesystem side effect for a routed file.
type Executor interface {
	// Move relocates file into destDir and returns the new path.
	Move(file, destDir string) (string, error)
}

// Mover moves files with rename(2). Moves are atomic and replace an existing
// file of the same name, but only within one filesystem: cross-device moves
// fail instead of falling back to copy and delete.
type Mover struct {
	logger  *slog.Logger
	dirMode fs.FileMode
}

// NewMover creates a Mover that creates missing destinations with mode 0o755.
func NewMover(logger *slog.Logger) *Mover {
	return &Mover{logger: logger, dirMode: 0o755}
}

// Move moves file into destDir under its base name.
//
// A missing destDir is created, one level only; a missing ancestor is a
// directory creation error. On any error the source is left where it was.
func (m *Mover) Move(file, destDir string) (string, error) {
	target := filepath.Join(destDir, filepath.Base(file))
	m.logger.Info("moving file", "from", file, "to", destDir)

	if _, err := os.Lstat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errors.Wrapf(err, errors.CodeSourceMissing, "source %s", file)
		}
		return "", errors.Wrapf(err, errors.CodeMove, "stat %s", file)
	}

	if err := m.ensureDir(destDir); err != nil {
		return "", err
	}

	if filepath.Clean(file) == target {
		m.logger.Debug("file already in destination", "path", file)
		return target, nil
	}

	if err := os.Rename(file, target); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if _, statErr := os.Lstat(file); statErr != nil {
				return "", errors.Wrapf(err, errors.CodeSourceMissing, "source %s", file)
			}
			return "", errors.Wrapf(err, errors.CodeMove, "move %s to %s", file, target)
		case errors.Is(err, syscall.EXDEV):
			return "", errors.Wrapf(err, errors.CodeMove, "move %s to %s: cross-device moves are not supported", file, target)
		default:
			return "", errors.Wrapf(err, errors.CodeMove, "move %s to %s", file, target)
		}
	}

	return target, nil
}

// ensureDir creates dir if it is missing. Only dir itself is created.
func (m *Mover) ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return errors.Wrapf(syscall.ENOTDIR, errors.CodeDirectoryCreation, "destination %s", dir)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return errors.Wrapf(err, errors.CodeDirectoryCreation, "stat %s", dir)
	}

	if err := os.Mkdir(dir, m.dirMode); err != nil {
		// Lost a race with another creator; fine as long as it is a directory.
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return errors.Wrapf(err, errors.CodeDirectoryCreation, "create %s", dir)
	}

	m.logger.Info("created directory", "dir", dir)
	return nil
}
