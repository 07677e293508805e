package lib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Block describes one fixed-size slice of a reference stream. Only the final
// block of a stream may be shorter than the table's block size.
type Block struct {
	Offset int64
	Length int64
	Weak   uint32
	Strong StrongSum
}

// BlockTable indexes every block of a reference stream by weak checksum and
// then by strong checksum. It is immutable once built.
type BlockTable struct {
	BlockSize int
	// FileSize and FileHash describe the whole reference stream.
	FileSize int64
	FileHash string
	// Blocks lists every block in stream order.
	Blocks []Block

	// index maps weak -> strong -> positions in Blocks, lowest offset first.
	// Several positions under one strong sum means the reference repeats a block.
	index map[uint32]map[StrongSum][]int
}

func newBlockTable(blockSize int) *BlockTable {
	return &BlockTable{
		BlockSize: blockSize,
		index:     make(map[uint32]map[StrongSum][]int),
	}
}

func (t *BlockTable) add(b Block) {
	t.Blocks = append(t.Blocks, b)
	inner, ok := t.index[b.Weak]
	if !ok {
		inner = make(map[StrongSum][]int)
		t.index[b.Weak] = inner
	}
	inner[b.Strong] = append(inner[b.Strong], len(t.Blocks)-1)
}

// Len returns the number of blocks in the table.
func (t *BlockTable) Len() int {
	return len(t.Blocks)
}

// HasWeak reports whether any block has the given weak checksum.
func (t *BlockTable) HasWeak(weak uint32) bool {
	_, ok := t.index[weak]
	return ok
}

// Lookup finds a block whose content is window. The weak checksum narrows the
// candidates; only an exact strong checksum and length match is returned.
// When the reference repeats the block, the copy starting at prefer wins so
// that consecutive matches stay contiguous; otherwise the lowest offset wins.
func (t *BlockTable) Lookup(weak uint32, window []byte, prefer int64) (Block, bool) {
	inner, ok := t.index[weak]
	if !ok {
		return Block{}, false
	}
	positions, ok := inner[StrongChecksum(window)]
	if !ok {
		return Block{}, false
	}

	found := false
	var best Block
	for _, pos := range positions {
		b := t.Blocks[pos]
		if b.Length != int64(len(window)) {
			continue
		}
		if b.Offset == prefer {
			return b, true
		}
		if !found {
			best, found = b, true
		}
	}
	return best, found
}

// BuildTable scans reference from offset 0 and records every block of
// blockSize bytes. A blockSize of zero or less selects one from the stream
// size with ChooseBlockSize. An empty stream yields an empty table.
func BuildTable(reference io.ReadSeeker, blockSize int) (*BlockTable, error) {
	if blockSize <= 0 {
		size, err := reference.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, seekError("build table", err)
		}
		blockSize = ChooseBlockSize(size)
	}
	if _, err := reference.Seek(0, io.SeekStart); err != nil {
		return nil, seekError("build table", err)
	}

	table := newBlockTable(blockSize)
	hasher := sha256.New()
	buf := make([]byte, blockSize)
	var offset int64

	for {
		n, err := io.ReadFull(reference, buf)
		if n > 0 {
			block := buf[:n]
			hasher.Write(block)
			table.add(Block{
				Offset: offset,
				Length: int64(n),
				Weak:   WeakChecksum(block),
				Strong: StrongChecksum(block),
			})
			offset += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read block at offset %d: %w", offset, err)
		}
	}

	table.FileSize = offset
	table.FileHash = hex.EncodeToString(hasher.Sum(nil))

	Logger().Debug().
		Int("block_size", blockSize).
		Int("blocks", table.Len()).
		Int64("file_size", table.FileSize).
		Msg("block table built")
	return table, nil
}
