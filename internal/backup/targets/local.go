package targets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/androsik2006/radmon/internal/backup"
)

// atomicWriteFile writes data to a temporary file and then renames it to the target path
func atomicWriteFile(targetPath string, perm os.FileMode, write func(*os.File) error) error {
	dir := filepath.Dir(targetPath)
	tempFile, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	// Ensure the temporary file is removed in case of failure
	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if err := tempFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := write(tempFile); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	success = true
	return nil
}

// LocalTarget implements the backup.Target interface for local filesystem storage
type LocalTarget struct {
	path string
}

// NewLocalTarget creates a target copying backups into dir.
func NewLocalTarget(dir string) (*LocalTarget, error) {
	if dir == "" {
		return nil, backup.NewError(backup.ErrValidation, "path is required for local target", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, backup.NewError(backup.ErrValidation, "invalid local target path", err)
	}
	return &LocalTarget{path: abs}, nil
}

// Name returns the name of this target
func (t *LocalTarget) Name() string {
	return "local"
}

// Store copies localPath into the target directory.
func (t *LocalTarget) Store(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", backup.NewError(backup.ErrCanceled, "local: store canceled", err)
	}
	if err := os.MkdirAll(t.path, PermDirGroup); err != nil {
		return "", backup.NewError(backup.ErrIO, "local: failed to create target directory", err)
	}

	dest := filepath.Join(t.path, filepath.Base(localPath))
	if same, _ := sameFile(localPath, dest); same {
		return dest, nil
	}

	src, err := os.Open(localPath) //nolint:gosec // G304 - localPath is the manager's own staging file
	if err != nil {
		return "", backup.NewError(backup.ErrIO, "local: failed to open backup file", err)
	}
	defer func() { _ = src.Close() }()

	err = atomicWriteFile(dest, PermFileGroup, func(f *os.File) error {
		buf := make([]byte, CopyBufferSize)
		_, err := io.CopyBuffer(f, src, buf)
		return err
	})
	if err != nil {
		return "", backup.NewError(backup.ErrIO, "local: failed to copy backup file", err)
	}
	return dest, nil
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
