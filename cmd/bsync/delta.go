package main

import (
	"github.com/gingerrexayers/bsync-go/internal/bsync/commands"
	"github.com/spf13/cobra"
)

// NewDeltaCommand creates the 'delta' command for the CLI.
func NewDeltaCommand() *cobra.Command {
	var opts commands.DeltaOptions

	cmd := &cobra.Command{
		Use:   "delta <signature-file> <new-file> <delta-file>",
		Short: "Describe a file as changes against a signature.",
		Long: `Scans the new file against the signature of a basis file and writes a
delta: the ranges that can be copied from the basis plus the literal bytes
the basis does not have.`,
		Args:              cobra.ExactArgs(3),
		ValidArgsFunction: positionalFiles([]string{signatureExt}, nil, []string{deltaExt}),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Delta(args[0], args[1], args[2], opts)
		},
	}

	cmd.Flags().Int64Var(&opts.SpillThreshold, "spill-threshold", 0, "Literal bytes kept in memory before spilling to disk (0 uses the default, negative never spills)")
	cmd.Flags().StringVar(&opts.TempDir, "temp-dir", "", "Directory for spilled literal bytes")

	return cmd
}
