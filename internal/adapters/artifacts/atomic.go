package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it
// over path. Readers see either the old or the new content, never a partial
// file.
func WriteFileAtomic(fs billy.Filesystem, path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %w", ErrAtomicWrite, dir, err)
		}
	}

	tmp, err := fs.TempFile(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %w", ErrAtomicWrite, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrAtomicWrite, tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrAtomicWrite, tmpName, err)
	}
	if err = fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", ErrAtomicWrite, path, err)
	}
	return nil
}

// exists reports whether path is present on fs.
func exists(fs billy.Filesystem, path string) (bool, error) {
	_, err := fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
