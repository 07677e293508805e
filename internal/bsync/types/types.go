package types

import "fmt"

// `json:"..."` tags define the wire format for signatures and deltas.

// Source tells where the bytes of a Range come from.
type Source uint8

const (
	// SourceReference addresses the reference stream the block table was built from.
	SourceReference Source = iota
	// SourceLiteral addresses the delta's literal blob.
	SourceLiteral
)

func (s Source) String() string {
	switch s {
	case SourceReference:
		return "reference"
	case SourceLiteral:
		return "literal"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

func (s Source) MarshalText() ([]byte, error) {
	switch s {
	case SourceReference, SourceLiteral:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown range source %d", uint8(s))
}

func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "reference":
		*s = SourceReference
	case "literal":
		*s = SourceLiteral
	default:
		return fmt.Errorf("unknown range source %q", string(text))
	}
	return nil
}

// Range is one reconstruction instruction: copy Length bytes starting at
// Offset from the addressed source.
type Range struct {
	Source Source `json:"source"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

// End returns the offset one past the last byte addressed by the range.
func (r Range) End() int64 {
	return r.Offset + r.Length
}

type BlockSignature struct {
	Weak   uint32 `json:"weak"`
	Strong string `json:"strong"` // hex encoded
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

type Signature struct {
	Version   int              `json:"version"`
	BlockSize int              `json:"blockSize"`
	FileSize  int64            `json:"fileSize"`
	FileHash  string           `json:"fileHash,omitempty"`
	Blocks    []BlockSignature `json:"blocks"`
}

type DeltaHeader struct {
	Version    int     `json:"version"`
	BlockSize  int     `json:"blockSize"`
	TargetSize int64   `json:"targetSize"`
	TargetHash string  `json:"targetHash,omitempty"`
	BlobSize   int64   `json:"blobSize"`
	Ranges     []Range `json:"ranges"`
}
