package lib

import (
	"errors"
	"fmt"

	"github.com/gingerrexayers/bsync-go/internal/bsync/types"
)

var (
	// ErrNotSeekable is wrapped by every InputError.
	ErrNotSeekable = errors.New("stream is not seekable")
	// ErrHashMismatch reports a reconstructed stream whose content hash differs
	// from the one recorded in the delta.
	ErrHashMismatch = errors.New("content hash mismatch")
	// ErrMalformedDelta reports an encoded delta that cannot be decoded.
	ErrMalformedDelta = errors.New("malformed delta")
	// ErrMalformedSignature reports an encoded signature that cannot be decoded.
	ErrMalformedSignature = errors.New("malformed signature")
)

// InputError is returned when a supplied stream does not support the seek or
// read operations an engine operation needs.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrNotSeekable, e.Err)
}

func (e *InputError) Unwrap() []error {
	return []error{ErrNotSeekable, e.Err}
}

// CorruptDeltaError is returned when a range addresses bytes outside of its
// source. Nothing has been written to the output when it is returned from
// ApplyPatch.
type CorruptDeltaError struct {
	Index      int
	Range      types.Range
	SourceSize int64
}

func (e *CorruptDeltaError) Error() string {
	return fmt.Sprintf("corrupt delta: range %d (%s offset=%d length=%d) exceeds %s size %d",
		e.Index, e.Range.Source, e.Range.Offset, e.Range.Length, e.Range.Source, e.SourceSize)
}

func seekError(op string, err error) error {
	return &InputError{Op: op, Err: err}
}
