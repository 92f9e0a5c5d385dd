package cli

import "github.com/spf13/cobra"

// shells lists the shells cobra can generate completions for.
var shells = []string{"bash", "zsh", "fish", "powershell"}

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for dynsvg.

Load it into the current shell:

  bash:        source <(dynsvg completion bash)
  zsh:         source <(dynsvg completion zsh)
  fish:        dynsvg completion fish | source
  powershell:  dynsvg completion powershell | Out-String | Invoke-Expression

To load completions in every session, write the script to your shell's
completion directory instead, e.g.
  dynsvg completion zsh > "${fpath[1]}/_dynsvg"
  dynsvg completion fish > ~/.config/fish/completions/dynsvg.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			default:
				return root.GenPowerShellCompletionWithDesc(w)
			}
		},
	}
}
