package lib

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// StrongSum is the BLAKE3-256 digest confirming a weak checksum match.
type StrongSum [32]byte

// StrongChecksum hashes a block.
func StrongChecksum(block []byte) StrongSum {
	return blake3.Sum256(block)
}

func (s StrongSum) String() string {
	return hex.EncodeToString(s[:])
}

// ParseStrongSum decodes the hex form produced by StrongSum.String.
func ParseStrongSum(text string) (StrongSum, error) {
	var s StrongSum
	raw, err := hex.DecodeString(text)
	if err != nil {
		return s, err
	}
	if len(raw) != len(s) {
		return s, fmt.Errorf("strong sum has %d bytes, want %d", len(raw), len(s))
	}
	copy(s[:], raw)
	return s, nil
}

// GetFileHash calculates the SHA-256 hash of a file's contents by streaming
// it from disk. The lowercase hex form matches the whole-stream hashes recorded
// in signatures and deltas.
func GetFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
