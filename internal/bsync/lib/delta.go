package lib

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/balena-os/circbuf"
	"github.com/gingerrexayers/bsync-go/internal/bsync/types"
)

// literalFlushSize bounds the pending literal bytes held outside the blob.
const literalFlushSize = 32 * 1024

// DeltaOptions configures ComputeDelta.
type DeltaOptions struct {
	// BlockSize is the scan window. Zero means the table's block size. A
	// different size is legal but only finds fewer matches.
	BlockSize int
	Blob      BlobOptions
}

// Delta describes how to rebuild a target stream from a reference stream plus
// the literal bytes in Blob. It owns the blob; Close releases it.
type Delta struct {
	BlockSize  int
	Ranges     []types.Range
	Blob       *Blob
	TargetSize int64
	TargetHash string
}

// Close releases the blob.
func (d *Delta) Close() error {
	if d == nil || d.Blob == nil {
		return nil
	}
	return d.Blob.Close()
}

// DeltaStats summarizes where the bytes of a delta come from.
type DeltaStats struct {
	Ranges         int
	ReferenceBytes int64
	LiteralBytes   int64
}

// Stats counts the delta's ranges and bytes per source.
func (d *Delta) Stats() DeltaStats {
	stats := DeltaStats{Ranges: len(d.Ranges)}
	for _, r := range d.Ranges {
		if r.Source == types.SourceReference {
			stats.ReferenceBytes += r.Length
		} else {
			stats.LiteralBytes += r.Length
		}
	}
	return stats
}

// deltaBuilder accumulates ranges and literal bytes during a scan.
type deltaBuilder struct {
	delta *Delta
	// pending literal bytes not yet written to the blob, and the length of the
	// open literal range (written plus pending).
	pending []byte
	litLen  int64
}

func (db *deltaBuilder) literal(c byte) error {
	db.pending = append(db.pending, c)
	db.litLen++
	if len(db.pending) >= literalFlushSize {
		return db.flushPending()
	}
	return nil
}

func (db *deltaBuilder) flushPending() error {
	if len(db.pending) == 0 {
		return nil
	}
	if _, err := db.delta.Blob.Write(db.pending); err != nil {
		return fmt.Errorf("failed to write literal bytes: %w", err)
	}
	db.pending = db.pending[:0]
	return nil
}

// closeLiteral ends the open literal range, if any.
func (db *deltaBuilder) closeLiteral() error {
	if db.litLen == 0 {
		return nil
	}
	if err := db.flushPending(); err != nil {
		return err
	}
	db.delta.Ranges = append(db.delta.Ranges, types.Range{
		Source: types.SourceLiteral,
		Offset: db.delta.Blob.Len() - db.litLen,
		Length: db.litLen,
	})
	db.litLen = 0
	return nil
}

// reference emits a match, merging it into the previous range when that range
// is a reference ending exactly where this one starts.
func (db *deltaBuilder) reference(b Block) error {
	if err := db.closeLiteral(); err != nil {
		return err
	}
	ranges := db.delta.Ranges
	if n := len(ranges); n > 0 && ranges[n-1].Source == types.SourceReference && ranges[n-1].End() == b.Offset {
		ranges[n-1].Length += b.Length
		return nil
	}
	db.delta.Ranges = append(ranges, types.Range{
		Source: types.SourceReference,
		Offset: b.Offset,
		Length: b.Length,
	})
	return nil
}

// nextReference is the reference offset that would extend the last range.
func (db *deltaBuilder) nextReference() int64 {
	ranges := db.delta.Ranges
	if n := len(ranges); n > 0 && ranges[n-1].Source == types.SourceReference && db.litLen == 0 {
		return ranges[n-1].End()
	}
	return -1
}

// ComputeDelta scans target once from offset 0 and describes it as ranges of
// the table's reference stream plus literal bytes. Working memory is bounded
// by the block size; literal bytes go to a blob that may spill to disk. The
// caller owns the returned delta and must Close it.
func ComputeDelta(target io.ReadSeeker, table *BlockTable, opts DeltaOptions) (*Delta, error) {
	if table == nil {
		return nil, errors.New("compute delta: nil block table")
	}
	if _, err := target.Seek(0, io.SeekStart); err != nil {
		return nil, seekError("compute delta", err)
	}

	blockSize := opts.BlockSize
	if blockSize <= 0 {
		blockSize = table.BlockSize
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	delta := &Delta{
		BlockSize: blockSize,
		Blob:      NewBlob(opts.Blob),
	}
	if err := scan(target, table, blockSize, delta); err != nil {
		delta.Close()
		return nil, err
	}

	stats := delta.Stats()
	Logger().Debug().
		Int("block_size", blockSize).
		Int("ranges", stats.Ranges).
		Int64("reference_bytes", stats.ReferenceBytes).
		Int64("literal_bytes", stats.LiteralBytes).
		Bool("blob_spilled", delta.Blob.Spilled()).
		Msg("delta computed")
	return delta, nil
}

func scan(target io.Reader, table *BlockTable, blockSize int, delta *Delta) error {
	window, err := circbuf.NewBuffer(int64(blockSize))
	if err != nil {
		return err
	}
	hasher := sha256.New()
	input := bufio.NewReaderSize(io.TeeReader(target, hasher), 64*1024)
	db := &deltaBuilder{delta: delta}
	var sum Rollsum

	// 1. Slide the window over the stream one byte at a time.
	for {
		in, err := input.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read target: %w", err)
		}
		delta.TargetSize++

		if sum.Len() == blockSize {
			// The window is full: its oldest byte cannot start a match any
			// more and becomes a literal.
			out, err := window.Get(0)
			if err != nil {
				return err
			}
			if err := db.literal(out); err != nil {
				return err
			}
			window.WriteByte(in)
			sum.Roll(out, in)
		} else {
			window.WriteByte(in)
			sum.Rollin(in)
		}

		if sum.Len() < blockSize || !table.HasWeak(sum.Digest()) {
			continue
		}
		// 2. A weak hit only counts once the strong checksum agrees.
		if b, ok := table.Lookup(sum.Digest(), window.Bytes(), db.nextReference()); ok {
			if err := db.reference(b); err != nil {
				return err
			}
			window.Reset()
			sum.Reset()
		}
	}

	// 3. Fewer than blockSize bytes are left. Shrink the window from the front
	// so a short final reference block can still match.
	tail := window.Bytes()
	for i := 0; i < len(tail); i++ {
		if table.HasWeak(sum.Digest()) {
			if b, ok := table.Lookup(sum.Digest(), tail[i:], db.nextReference()); ok {
				if err := db.reference(b); err != nil {
					return err
				}
				break
			}
		}
		if err := db.literal(tail[i]); err != nil {
			return err
		}
		sum.Rollout(tail[i])
	}

	// 4. Flush whatever literal range is still open.
	if err := db.closeLiteral(); err != nil {
		return err
	}
	delta.TargetHash = hex.EncodeToString(hasher.Sum(nil))
	return nil
}
