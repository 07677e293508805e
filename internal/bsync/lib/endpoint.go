package lib

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Endpoint is one side of a synchronization. The destination describes its
// current content with Signature, the source answers with a Delta, and the
// destination applies it with Patch. Remote endpoints implement the same
// three calls over their transport.
type Endpoint interface {
	Signature(blockSize int) (*BlockTable, error)
	Delta(table *BlockTable, opts DeltaOptions) (*Delta, error)
	Patch(delta *Delta) error
}

// LocalFile is an Endpoint backed by a file on the local filesystem. As a
// destination, a file that does not exist behaves as an empty one.
type LocalFile struct {
	Path string
}

func (f LocalFile) Signature(blockSize int) (*BlockTable, error) {
	r, err := OpenOrEmpty(f.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	table, err := BuildTable(r, blockSize)
	if err != nil {
		return nil, fmt.Errorf("signature of %s: %w", f.Path, err)
	}
	return table, nil
}

// Delta describes the file against table. Unlike the other two calls it
// requires the file to exist.
func (f LocalFile) Delta(table *BlockTable, opts DeltaOptions) (*Delta, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	delta, err := ComputeDelta(r, table, opts)
	if err != nil {
		return nil, fmt.Errorf("delta of %s: %w", f.Path, err)
	}
	return delta, nil
}

// Patch rebuilds the file from its current content and delta, then replaces
// it atomically. The existing file mode is kept; new files get 0644.
func (f LocalFile) Patch(delta *Delta) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(f.Path); err == nil {
		mode = info.Mode().Perm()
	}

	reference, err := OpenOrEmpty(f.Path)
	if err != nil {
		return err
	}
	// The old file stays open and readable while its replacement is built.
	defer reference.Close()

	return ReplaceFile(f.Path, mode, func(w io.Writer) error {
		if _, err := ApplyPatch(reference, delta, w); err != nil {
			return fmt.Errorf("patch of %s: %w", f.Path, err)
		}
		return nil
	})
}

// SyncOptions configures Sync.
type SyncOptions struct {
	// BlockSize is passed to the destination's Signature. Zero lets the
	// destination choose from its size.
	BlockSize int
	Blob      BlobOptions
}

// Sync makes dst match src: dst.Patch(src.Delta(dst.Signature())). The delta
// is released on every path.
func Sync(src, dst Endpoint, opts SyncOptions) (stats DeltaStats, err error) {
	log := Logger().With().Str("op", uuid.NewString()).Logger()

	table, err := dst.Signature(opts.BlockSize)
	if err != nil {
		return stats, err
	}
	log.Debug().Int("blocks", table.Len()).Int("block_size", table.BlockSize).Msg("destination signature ready")

	delta, err := src.Delta(table, DeltaOptions{BlockSize: table.BlockSize, Blob: opts.Blob})
	if err != nil {
		return stats, err
	}
	defer func() {
		err = errors.Join(err, delta.Close())
	}()
	stats = delta.Stats()
	log.Debug().
		Int("ranges", stats.Ranges).
		Int64("reference_bytes", stats.ReferenceBytes).
		Int64("literal_bytes", stats.LiteralBytes).
		Msg("source delta ready")

	if err := dst.Patch(delta); err != nil {
		log.Error().Err(err).Msg("patch failed")
		return stats, err
	}
	log.Debug().Msg("destination patched")
	return stats, nil
}
