package lib

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceFile(t *testing.T) {
	t.Run("Creates the file and its parents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "out.txt")
		err := ReplaceFile(path, 0600, func(w io.Writer) error {
			_, err := io.WriteString(w, "content")
			return err
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("Failed fill leaves the original untouched", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "keep.txt")
		require.NoError(t, os.WriteFile(path, []byte("original"), 0644))

		fillErr := errors.New("fill failed")
		err := ReplaceFile(path, 0644, func(w io.Writer) error {
			io.WriteString(w, "partial")
			return fillErr
		})
		assert.ErrorIs(t, err, fillErr)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "original", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file should be cleaned up")
	})
}

func TestOpenOrEmpty(t *testing.T) {
	t.Run("Missing file reads as empty", func(t *testing.T) {
		r, err := OpenOrEmpty(filepath.Join(t.TempDir(), "missing"))
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "present")
		require.NoError(t, os.WriteFile(path, []byte("here"), 0644))
		r, err := OpenOrEmpty(path)
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "here", string(data))
	})
}
