package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
)

// DeltaOptions holds the configuration for the delta command.
type DeltaOptions struct {
	SpillThreshold int64
	TempDir        string
}

// Delta is the main function for the 'delta' command. It diffs newPath
// against the signature in sigPath and writes the delta to deltaPath.
func Delta(sigPath, newPath, deltaPath string, opts DeltaOptions) error {
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature: %w", err)
	}
	table, err := lib.ReadSignature(sigFile)
	sigFile.Close()
	if err != nil {
		return fmt.Errorf("failed to read signature %s: %w", sigPath, err)
	}

	newFile, err := os.Open(newPath)
	if err != nil {
		return fmt.Errorf("failed to open new file: %w", err)
	}
	defer newFile.Close()

	delta, err := lib.ComputeDelta(newFile, table, lib.DeltaOptions{
		Blob: lib.BlobOptions{SpillThreshold: opts.SpillThreshold, TempDir: opts.TempDir},
	})
	if err != nil {
		return fmt.Errorf("failed to compute delta: %w", err)
	}
	defer delta.Close()

	err = lib.ReplaceFile(deltaPath, 0644, func(w io.Writer) error {
		return lib.WriteDelta(w, delta)
	})
	if err != nil {
		return fmt.Errorf("failed to write delta: %w", err)
	}

	fmt.Printf("📦 Delta of \"%s\" written to \"%s\"\n", newPath, deltaPath)
	printStats(delta.Stats())
	return nil
}
