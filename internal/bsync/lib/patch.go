package lib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/gingerrexayers/bsync-go/internal/bsync/types"
)

// ValidateRanges checks every range of delta against the reference size and
// the blob size. It returns a *CorruptDeltaError for the first bad range.
func ValidateRanges(delta *Delta, referenceSize int64) error {
	var blobSize int64
	if delta.Blob != nil {
		blobSize = delta.Blob.Len()
	}
	for i, r := range delta.Ranges {
		size := referenceSize
		switch r.Source {
		case types.SourceReference:
		case types.SourceLiteral:
			size = blobSize
		default:
			return &CorruptDeltaError{Index: i, Range: r, SourceSize: 0}
		}
		if r.Offset < 0 || r.Length < 0 || r.Offset > size || r.Length > size-r.Offset {
			return &CorruptDeltaError{Index: i, Range: r, SourceSize: size}
		}
	}
	return nil
}

// ApplyPatch writes the stream described by delta to out, copying reference
// ranges from reference and literal ranges from the delta's blob. All ranges
// are validated before the first byte is written. When the delta records a
// target hash, the output is checked against it and ErrHashMismatch is
// returned on a difference.
func ApplyPatch(reference io.ReadSeeker, delta *Delta, out io.Writer) (int64, error) {
	if delta == nil {
		return 0, errors.New("apply patch: nil delta")
	}
	referenceSize, err := reference.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, seekError("apply patch", err)
	}
	if _, err := reference.Seek(0, io.SeekStart); err != nil {
		return 0, seekError("apply patch", err)
	}
	if err := ValidateRanges(delta, referenceSize); err != nil {
		return 0, err
	}

	hasher := sha256.New()
	w := io.MultiWriter(out, hasher)
	var written int64

	for i, r := range delta.Ranges {
		var src io.Reader
		if r.Source == types.SourceReference {
			if _, err := reference.Seek(r.Offset, io.SeekStart); err != nil {
				return written, seekError("apply patch", err)
			}
			src = reference
		} else {
			src = io.NewSectionReader(delta.Blob, r.Offset, r.Length)
		}

		n, err := io.CopyN(w, src, r.Length)
		written += n
		if errors.Is(err, io.EOF) {
			// The source shrank after validation.
			return written, &CorruptDeltaError{Index: i, Range: r, SourceSize: r.Offset + n}
		}
		if err != nil {
			return written, fmt.Errorf("failed to copy range %d: %w", i, err)
		}
	}

	if delta.TargetSize > 0 && written != delta.TargetSize {
		return written, fmt.Errorf("%w: wrote %d bytes, expected %d", ErrHashMismatch, written, delta.TargetSize)
	}
	if delta.TargetHash != "" {
		if got := hex.EncodeToString(hasher.Sum(nil)); got != delta.TargetHash {
			return written, fmt.Errorf("%w: got %s, expected %s", ErrHashMismatch, got, delta.TargetHash)
		}
	}
	return written, nil
}
