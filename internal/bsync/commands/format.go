// Package commands contains the command-line operations of the bsync application.
package commands

import (
	"fmt"
	"math"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
)

// formatBytes is a utility to convert bytes into a human-readable string (KB, MB, GB).
func formatBytes(bytes int64, decimals int) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	const k = 1024
	if decimals < 0 {
		decimals = 0
	}
	sizes := []string{"Bytes", "KB", "MB", "GB", "TB"}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}

	return fmt.Sprintf("%.*f %s", decimals, float64(bytes)/math.Pow(k, float64(i)), sizes[i])
}

// printStats prints how much of a target was reused and how much was sent.
func printStats(stats lib.DeltaStats) {
	total := stats.ReferenceBytes + stats.LiteralBytes
	reused := 0.0
	if total > 0 {
		reused = float64(stats.ReferenceBytes) / float64(total) * 100
	}
	fmt.Printf("   - Ranges: %d\n", stats.Ranges)
	fmt.Printf("   - Reused: %s (%.1f%%)\n", formatBytes(stats.ReferenceBytes, 2), reused)
	fmt.Printf("   - Literal: %s\n", formatBytes(stats.LiteralBytes, 2))
}
