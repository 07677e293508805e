package main

import (
	"github.com/gingerrexayers/bsync-go/internal/bsync/commands"
	"github.com/spf13/cobra"
)

// NewSignatureCommand creates the 'signature' command for the CLI.
func NewSignatureCommand() *cobra.Command {
	var blockSize int

	cmd := &cobra.Command{
		Use:               "signature <basis-file> <signature-file>",
		Short:             "Write the block signature of a file.",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: positionalFiles(nil, []string{signatureExt}),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Signature(args[0], args[1], commands.SignatureOptions{BlockSize: blockSize})
		},
	}

	cmd.Flags().IntVarP(&blockSize, "block-size", "b", 0, "Block size in bytes (0 picks one from the file size)")

	return cmd
}
