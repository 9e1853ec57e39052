package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tabula/internal/domain"
)

var _ domain.ObjectArchive = (*LocalArchive)(nil)

// LocalArchive stores objects as files below a root directory.
type LocalArchive struct {
	root string
}

// NewLocalArchive creates the root directory if needed.
func NewLocalArchive(root string) (*LocalArchive, error) {
	if root == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve archive directory %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory %q: %w", abs, err)
	}
	return &LocalArchive{root: abs}, nil
}

// Put writes r to <root>/<key> via a temporary file and returns the file path.
func (a *LocalArchive) Put(_ context.Context, key string, r io.Reader) (string, error) {
	dst, err := a.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("rename %q: %w", key, err)
	}
	return dst, nil
}

// Delete removes <root>/<key>. Missing files are not an error.
func (a *LocalArchive) Delete(_ context.Context, key string) error {
	p, err := a.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	// Drop the per-dataset directory once it is empty.
	if dir := filepath.Dir(p); dir != a.root {
		_ = os.Remove(dir)
	}
	return nil
}

func (a *LocalArchive) path(key string) (string, error) {
	rel, err := objectKey("", key)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.root, filepath.FromSlash(rel)), nil
}
