package main

import (
	"github.com/spf13/cobra"
)

// File extensions suggested for signature and delta arguments.
const (
	signatureExt = "sig"
	deltaExt     = "delta"
)

// positionalFiles completes the nth positional argument with files. A nil
// entry allows any file; otherwise only the listed extensions are offered.
// Arguments past the end get no completion.
func positionalFiles(exts ...[]string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) >= len(exts) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if want := exts[len(args)]; want != nil {
			return want, cobra.ShellCompDirectiveFilterFileExt
		}
		return nil, cobra.ShellCompDirectiveDefault
	}
}
