package lib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReplaceFile writes a new version of path through fill. The content goes to
// a temporary file in the same directory, is synced to stable storage and
// then renamed over path, so readers see either the old or the new file. The
// new file gets mode. If fill fails, path is left untouched.
func ReplaceFile(path string, mode os.FileMode, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, TempFilePrefix+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	// Ensure the data is written to stable storage.
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

type emptyFile struct {
	*bytes.Reader
}

func (emptyFile) Close() error { return nil }

// OpenOrEmpty opens path for reading. A missing file reads as an empty stream,
// which is how a sync target that does not exist yet is treated.
func OpenOrEmpty(path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return emptyFile{bytes.NewReader(nil)}, nil
}
