package main

import (
	"os"

	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the 'completion' command, which writes a shell
// completion script for bsync to stdout.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `Writes a completion script for the given shell.

Bash (current session):
  $ source <(bsync completion bash)

Zsh (new sessions, with compinit enabled):
  $ bsync completion zsh > "${fpath[1]}/_bsync"

Fish:
  $ bsync completion fish > ~/.config/fish/completions/bsync.fish

Powershell:
  PS> bsync completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}
}
