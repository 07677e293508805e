package lib

import (
	"bytes"
	"testing"

	"github.com/gingerrexayers/bsync-go/internal/bsync/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// literalDelta returns a delta whose blob holds literal.
func literalDelta(t *testing.T, literal []byte, ranges ...types.Range) *Delta {
	t.Helper()
	blob := NewBlob(BlobOptions{})
	_, err := blob.Write(literal)
	require.NoError(t, err)
	t.Cleanup(func() { blob.Close() })
	return &Delta{Ranges: ranges, Blob: blob}
}

func TestApplyPatch(t *testing.T) {
	reference := []byte("01234567")

	t.Run("Copies ranges in order", func(t *testing.T) {
		delta := literalDelta(t, []byte("xyz"),
			types.Range{Source: types.SourceReference, Offset: 4, Length: 4},
			types.Range{Source: types.SourceLiteral, Offset: 1, Length: 2},
			types.Range{Source: types.SourceReference, Offset: 0, Length: 2},
		)
		var out bytes.Buffer
		n, err := ApplyPatch(bytes.NewReader(reference), delta, &out)
		require.NoError(t, err)
		assert.Equal(t, int64(8), n)
		assert.Equal(t, "4567yz01", out.String())
	})

	t.Run("Corrupt ranges write nothing", func(t *testing.T) {
		testCases := []struct {
			name       string
			bad        types.Range
			sourceSize int64
		}{
			{"Reference past the end", types.Range{Source: types.SourceReference, Offset: 5, Length: 10}, 8},
			{"Reference offset past the end", types.Range{Source: types.SourceReference, Offset: 9, Length: 0}, 8},
			{"Negative offset", types.Range{Source: types.SourceReference, Offset: -1, Length: 2}, 8},
			{"Negative length", types.Range{Source: types.SourceReference, Offset: 0, Length: -2}, 8},
			{"Literal past the blob", types.Range{Source: types.SourceLiteral, Offset: 1, Length: 5}, 3},
			{"Unknown source", types.Range{Source: types.Source(7), Offset: 0, Length: 1}, 0},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				delta := literalDelta(t, []byte("xyz"),
					types.Range{Source: types.SourceReference, Offset: 0, Length: 4},
					tc.bad,
				)
				var out bytes.Buffer
				n, err := ApplyPatch(bytes.NewReader(reference), delta, &out)

				var corrupt *CorruptDeltaError
				require.ErrorAs(t, err, &corrupt)
				assert.Equal(t, 1, corrupt.Index)
				assert.Equal(t, tc.bad, corrupt.Range)
				assert.Equal(t, tc.sourceSize, corrupt.SourceSize)
				assert.Equal(t, int64(0), n)
				assert.Zero(t, out.Len(), "nothing may be written for a corrupt delta")
			})
		}
	})

	t.Run("Wrong reference is detected", func(t *testing.T) {
		delta := computeDelta(t, []byte("aaaabbbbcccc"), []byte("aaaaXbbbbcccc"), 4)
		var out bytes.Buffer
		_, err := ApplyPatch(bytes.NewReader([]byte("aaaaddddcccc")), delta, &out)
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("Tampered target hash", func(t *testing.T) {
		delta := computeDelta(t, reference, []byte("0123xx4567"), 4)
		delta.TargetHash = contentHash([]byte("something else"))
		_, err := ApplyPatch(bytes.NewReader(reference), delta, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("Wrong target size", func(t *testing.T) {
		delta := computeDelta(t, reference, reference, 4)
		delta.TargetSize = 999
		_, err := ApplyPatch(bytes.NewReader(reference), delta, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("Delta without a recorded hash", func(t *testing.T) {
		delta := literalDelta(t, []byte("new"), types.Range{Source: types.SourceLiteral, Offset: 0, Length: 3})
		var out bytes.Buffer
		_, err := ApplyPatch(bytes.NewReader(reference), delta, &out)
		require.NoError(t, err)
		assert.Equal(t, "new", out.String())
	})

	t.Run("Non-seekable reference", func(t *testing.T) {
		delta := literalDelta(t, nil)
		_, err := ApplyPatch(noSeek{bytes.NewReader(reference)}, delta, &bytes.Buffer{})
		assert.ErrorIs(t, err, ErrNotSeekable)
	})

	t.Run("Nil delta", func(t *testing.T) {
		_, err := ApplyPatch(bytes.NewReader(reference), nil, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
