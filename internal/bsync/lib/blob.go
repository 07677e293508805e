package lib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// BlobOptions controls where a blob keeps its bytes.
type BlobOptions struct {
	// SpillThreshold is the in-memory size above which the blob moves to a
	// temporary file. Zero means DefaultSpillThreshold; negative never spills.
	SpillThreshold int64
	// TempDir is the directory for the spill file. Empty means os.TempDir().
	TempDir string
}

// Blob holds the literal bytes of a delta. It is written sequentially while
// the delta is computed and read back at random offsets while patching.
// Close releases the spill file, if any.
type Blob struct {
	opts   BlobOptions
	mem    bytes.Buffer
	file   *os.File
	size   int64
	closed bool
}

// NewBlob returns an empty in-memory blob.
func NewBlob(opts BlobOptions) *Blob {
	if opts.SpillThreshold == 0 {
		opts.SpillThreshold = DefaultSpillThreshold
	}
	return &Blob{opts: opts}
}

// Write appends p to the blob, spilling to disk once the threshold is crossed.
func (b *Blob) Write(p []byte) (int, error) {
	if b.closed {
		return 0, os.ErrClosed
	}
	if b.file == nil && b.opts.SpillThreshold > 0 && b.size+int64(len(p)) > b.opts.SpillThreshold {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	var n int
	var err error
	if b.file != nil {
		n, err = b.file.Write(p)
	} else {
		n, err = b.mem.Write(p)
	}
	b.size += int64(n)
	return n, err
}

// spill moves the in-memory contents to a new temporary file.
func (b *Blob) spill() error {
	f, err := os.CreateTemp(b.opts.TempDir, TempFilePrefix+"blob-*")
	if err != nil {
		return fmt.Errorf("failed to create blob spill file: %w", err)
	}
	if _, err := f.Write(b.mem.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to spill blob: %w", err)
	}
	Logger().Debug().Str("path", f.Name()).Int64("size", b.size).Msg("blob spilled to disk")
	b.file = f
	b.mem = bytes.Buffer{}
	return nil
}

// ReadAt implements io.ReaderAt over the bytes written so far.
func (b *Blob) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, errors.New("blob: negative offset")
	}
	if off >= b.size {
		return 0, io.EOF
	}
	if b.file != nil {
		return b.file.ReadAt(p, off)
	}
	n := copy(p, b.mem.Bytes()[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Len returns the number of bytes written.
func (b *Blob) Len() int64 {
	return b.size
}

// Spilled reports whether the blob lives in a temporary file.
func (b *Blob) Spilled() bool {
	return b.file != nil
}

// Reader returns a reader over the whole blob.
func (b *Blob) Reader() *io.SectionReader {
	return io.NewSectionReader(b, 0, b.size)
}

// Close drops the in-memory bytes and removes the spill file. It is safe to
// call more than once.
func (b *Blob) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = bytes.Buffer{}
	if b.file == nil {
		return nil
	}
	name := b.file.Name()
	closeErr := b.file.Close()
	removeErr := os.Remove(name)
	b.file = nil
	return errors.Join(closeErr, removeErr)
}
