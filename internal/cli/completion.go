package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newCompletionCommand(tool string) *cobra.Command {
	long := `Generate shell completion scripts for TOOL.

To load completions:

Bash:
  $ source <(TOOL completion bash)

Zsh:
  $ TOOL completion zsh > "${fpath[1]}/_TOOL"

Fish:
  $ TOOL completion fish > ~/.config/fish/completions/TOOL.fish

PowerShell:
  PS> TOOL completion powershell | Out-String | Invoke-Expression
`

	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long:  strings.ReplaceAll(long, "TOOL", tool),
		// Override parent PersistentPreRunE, completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}
