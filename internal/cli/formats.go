package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitflow/ledger-backend/internal/parser"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the registered statement formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range parser.NewRegistry().Names() {
				fmt.Printf("%d. %s\n", i+1, name)
			}
			return nil
		},
	}
}
