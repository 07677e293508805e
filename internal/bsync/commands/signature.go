package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
)

// SignatureOptions holds the configuration for the signature command.
type SignatureOptions struct {
	BlockSize int
}

// Signature is the main function for the 'signature' command. It writes the
// block table of basisPath to sigPath.
func Signature(basisPath, sigPath string, opts SignatureOptions) error {
	absBasis, err := filepath.Abs(basisPath)
	if err != nil {
		return fmt.Errorf("could not resolve absolute path for %s: %w", basisPath, err)
	}

	basis, err := os.Open(absBasis)
	if err != nil {
		return fmt.Errorf("failed to open basis file: %w", err)
	}
	defer basis.Close()

	table, err := lib.BuildTable(basis, opts.BlockSize)
	if err != nil {
		return fmt.Errorf("failed to build signature: %w", err)
	}

	err = lib.ReplaceFile(sigPath, 0644, func(w io.Writer) error {
		return lib.WriteSignature(w, table)
	})
	if err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	fmt.Printf("✍️  Signature of \"%s\" written to \"%s\"\n", absBasis, sigPath)
	fmt.Printf("   - Blocks: %d of %s\n", table.Len(), formatBytes(int64(table.BlockSize), 0))
	fmt.Printf("   - File size: %s\n", formatBytes(table.FileSize, 2))
	return nil
}
