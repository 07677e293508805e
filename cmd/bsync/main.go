package main

import (
	"fmt"
	"os"

	"github.com/gingerrexayers/bsync-go/internal/bsync/lib"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool

	var rootCmd = &cobra.Command{
		Use:           "bsync",
		Short:         "Synchronize files by sending only the blocks that changed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lib.SetLogger(lib.NewConsoleLogger(os.Stderr, verbose))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(NewSignatureCommand())
	rootCmd.AddCommand(NewDeltaCommand())
	rootCmd.AddCommand(NewPatchCommand())
	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
