package cmd

import (
	"strings"

	"github.com/explorrrr/boj-client/internal/catalog"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/spf13/cobra"
)

// completionCmd wraps Cobra's built-in shell completion generator.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for boj. Database codes and layer
frequencies complete from the built-in catalog.

To load completions in the current shell session:

  # bash
  source <(boj completion bash)

  # zsh
  source <(boj completion zsh)

  # fish
  boj completion fish | source`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return root.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return root.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		default:
			return cmd.Help()
		}
	},
}

// dbCompletions returns catalog DB codes starting with toComplete, each
// described by its Japanese name.
func dbCompletions(toComplete string) []string {
	prefix := strings.ToUpper(toComplete)
	var out []string
	for _, d := range catalog.Databases() {
		if strings.HasPrefix(d.Code, prefix) {
			out = append(out, d.Code+"\t"+d.NameJA)
		}
	}
	return out
}

// completeFirstDB completes the DB argument of code and layer.
func completeFirstDB(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return dbCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		if cmd == layerCmd {
			var freqs []string
			for _, f := range query.Frequencies {
				freqs = append(freqs, string(f))
			}
			return freqs, cobra.ShellCompDirectiveNoFileComp
		}
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// completeAllDBs completes every argument of metadata.
func completeAllDBs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return dbCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)

	codeCmd.ValidArgsFunction = completeFirstDB
	layerCmd.ValidArgsFunction = completeFirstDB
	metadataCmd.ValidArgsFunction = completeAllDBs
}
