package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
)

// Patch is the main function for the 'patch' command. It rebuilds the target
// described by the delta in deltaPath from basisPath and writes it to
// outPath. An empty outPath, or one naming the basis itself, patches the
// basis in place.
func Patch(basisPath, deltaPath, outPath string) error {
	deltaFile, err := os.Open(deltaPath)
	if err != nil {
		return fmt.Errorf("failed to open delta: %w", err)
	}
	delta, err := lib.ReadDelta(deltaFile, lib.BlobOptions{})
	deltaFile.Close()
	if err != nil {
		return fmt.Errorf("failed to read delta %s: %w", deltaPath, err)
	}
	defer delta.Close()

	if outPath == "" {
		outPath = basisPath
	}
	absBasis, err := filepath.Abs(basisPath)
	if err != nil {
		return fmt.Errorf("could not resolve basis path: %w", err)
	}
	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("could not resolve output path: %w", err)
	}

	if absOut == absBasis {
		if err := (lib.LocalFile{Path: absBasis}).Patch(delta); err != nil {
			return err
		}
	} else {
		basis, err := lib.OpenOrEmpty(absBasis)
		if err != nil {
			return fmt.Errorf("failed to open basis file: %w", err)
		}
		defer basis.Close()

		err = lib.ReplaceFile(absOut, 0644, func(w io.Writer) error {
			_, err := lib.ApplyPatch(basis, delta, w)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to patch %s: %w", absOut, err)
		}
	}

	fmt.Printf("🩹 Patched \"%s\" (%s)\n", absOut, formatBytes(delta.TargetSize, 2))
	return nil
}
