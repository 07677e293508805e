package main

import (
	"github.com/gingerrexayers/bsync-go/internal/bsync/commands"
	"github.com/spf13/cobra"
)

// NewPatchCommand creates the 'patch' command for the CLI.
func NewPatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch <basis-file> <delta-file> [output-file]",
		Short: "Rebuild a file from its basis and a delta.",
		Long: `Applies a delta to the basis file. Without an output file the basis is
replaced in place once the rebuilt content has been verified.`,
		Args:              cobra.RangeArgs(2, 3),
		ValidArgsFunction: positionalFiles(nil, []string{deltaExt}, nil),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath := ""
			if len(args) > 2 {
				outPath = args[2]
			}
			return commands.Patch(args[0], args[1], outPath)
		},
	}
	return cmd
}
