package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stmt",
		Short: "Offline bank statement inspection",
		Long:  "Detect the format of a bank statement export and preview what an import would produce, without touching the database.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newFormatsCommand())

	return rootCmd
}
