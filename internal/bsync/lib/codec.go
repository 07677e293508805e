package lib

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gingerrexayers/bsync-go/internal/bsync/types"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// FormatVersion is written into every signature and delta header.
const FormatVersion = 1

// deltaMagic opens every decompressed delta stream.
var deltaMagic = [4]byte{'B', 'S', 'D', '1'}

// maxHeaderSize bounds the JSON header ReadDelta will allocate. A range takes
// well under 100 bytes of JSON, so this allows several hundred thousand ranges.
const maxHeaderSize = 64 << 20

// Signature converts the table to its wire form.
func (t *BlockTable) Signature() types.Signature {
	sig := types.Signature{
		Version:   FormatVersion,
		BlockSize: t.BlockSize,
		FileSize:  t.FileSize,
		FileHash:  t.FileHash,
		Blocks:    make([]types.BlockSignature, len(t.Blocks)),
	}
	for i, b := range t.Blocks {
		sig.Blocks[i] = types.BlockSignature{
			Weak:   b.Weak,
			Strong: b.Strong.String(),
			Offset: b.Offset,
			Length: b.Length,
		}
	}
	return sig
}

// TableFromSignature rebuilds a block table, index included, from its wire form.
func TableFromSignature(sig types.Signature) (*BlockTable, error) {
	if sig.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedSignature, sig.Version)
	}
	if sig.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrMalformedSignature, sig.BlockSize)
	}

	table := newBlockTable(sig.BlockSize)
	table.FileSize = sig.FileSize
	table.FileHash = sig.FileHash
	for i, bs := range sig.Blocks {
		strong, err := ParseStrongSum(bs.Strong)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrMalformedSignature, i, err)
		}
		if bs.Offset < 0 || bs.Length <= 0 || bs.Length > int64(sig.BlockSize) {
			return nil, fmt.Errorf("%w: block %d has offset %d length %d", ErrMalformedSignature, i, bs.Offset, bs.Length)
		}
		table.add(Block{Offset: bs.Offset, Length: bs.Length, Weak: bs.Weak, Strong: strong})
	}
	return table, nil
}

// WriteSignature encodes the table as JSON.
func WriteSignature(w io.Writer, table *BlockTable) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table.Signature())
}

// ReadSignature decodes a table written by WriteSignature.
func ReadSignature(r io.Reader) (*BlockTable, error) {
	var sig types.Signature
	if err := json.NewDecoder(r).Decode(&sig); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return TableFromSignature(sig)
}

// Header returns the wire header describing the delta.
func (d *Delta) Header() types.DeltaHeader {
	h := types.DeltaHeader{
		Version:    FormatVersion,
		BlockSize:  d.BlockSize,
		TargetSize: d.TargetSize,
		TargetHash: d.TargetHash,
		Ranges:     d.Ranges,
	}
	if d.Blob != nil {
		h.BlobSize = d.Blob.Len()
	}
	return h
}

// WriteDelta encodes the delta as a zstd stream: magic, header length, JSON
// header, then the raw blob.
func WriteDelta(w io.Writer, d *Delta) error {
	header, err := json.Marshal(d.Header())
	if err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	var prefix bytes.Buffer
	prefix.Write(deltaMagic[:])
	binary.Write(&prefix, binary.BigEndian, uint32(len(header)))
	prefix.Write(header)

	if _, err := zw.Write(prefix.Bytes()); err != nil {
		zw.Close()
		return err
	}
	if d.Blob != nil {
		if _, err := io.Copy(zw, d.Blob.Reader()); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write blob: %w", err)
		}
	}
	return zw.Close()
}

// ReadDelta decodes a delta written by WriteDelta. The blob is spooled
// according to opts. The caller must Close the returned delta.
func ReadDelta(r io.Reader, opts BlobOptions) (*Delta, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelta, err)
	}
	defer zr.Close()

	var magic [4]byte
	if _, err := io.ReadFull(zr, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelta, err)
	}
	if magic != deltaMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedDelta, magic[:])
	}
	var headerLen uint32
	if err := binary.Read(zr, binary.BigEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelta, err)
	}
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("%w: header of %d bytes", ErrMalformedDelta, headerLen)
	}
	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelta, err)
	}
	var header types.DeltaHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelta, err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedDelta, header.Version)
	}
	if header.BlobSize < 0 {
		return nil, fmt.Errorf("%w: blob size %d", ErrMalformedDelta, header.BlobSize)
	}

	delta := &Delta{
		BlockSize:  header.BlockSize,
		Ranges:     header.Ranges,
		TargetSize: header.TargetSize,
		TargetHash: header.TargetHash,
		Blob:       NewBlob(opts),
	}
	n, err := io.CopyN(delta.Blob, zr, header.BlobSize)
	if err != nil {
		delta.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: blob has %d bytes, header says %d", ErrMalformedDelta, n, header.BlobSize)
		}
		return nil, err
	}
	return delta, nil
}
