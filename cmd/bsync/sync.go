package main

import (
	"github.com/gingerrexayers/bsync-go/internal/bsync/commands"
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the 'sync' command for the CLI.
func NewSyncCommand() *cobra.Command {
	var opts commands.SyncOptions

	cmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Make a destination file or directory match the source.",
		Long: `Synchronizes a file, or every file of a directory tree, by computing the
signature of the destination, the delta of the source against it, and
patching the destination in place. Paths listed in .bsyncignore are skipped.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: positionalFiles(nil, nil),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Sync(args[0], args[1], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.BlockSize, "block-size", "b", 0, "Block size in bytes (0 picks one per destination file)")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "Remove destination files that are not in the source")
	cmd.Flags().Int64Var(&opts.Blob.SpillThreshold, "spill-threshold", 0, "Literal bytes kept in memory before spilling to disk")
	cmd.Flags().StringVar(&opts.Blob.TempDir, "temp-dir", "", "Directory for spilled literal bytes")

	return cmd
}
