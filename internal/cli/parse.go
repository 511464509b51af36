package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bitflow/ledger-backend/internal/domain"
	"github.com/bitflow/ledger-backend/internal/parser"
)

func newParseCommand() *cobra.Command {
	var limit int
	var showWarnings bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a statement file and preview its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading statement: %w", err)
			}
			return runParse(content, limit, showWarnings)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum transactions to preview (0 for all)")
	cmd.Flags().BoolVar(&showWarnings, "warnings", true, "show skipped-line warnings")

	return cmd
}

func runParse(content []byte, limit int, showWarnings bool) error {
	registry := parser.NewRegistry()

	format, confidence, err := registry.Detect(content)
	if err != nil {
		return fmt.Errorf("detecting format: %w", err)
	}
	fmt.Printf("Format:     %s (confidence %.2f)\n", color.CyanString(format.Name()), confidence)

	result, err := registry.Parse(content)
	if err != nil {
		return fmt.Errorf("parsing statement: %w", err)
	}

	fmt.Printf("Rows:       %s parsed, %s skipped\n",
		color.GreenString("%d", len(result.Candidates)),
		color.YellowString("%d", len(result.Warnings)))
	if result.StatementBalance != nil {
		fmt.Printf("Closing:    %s\n", result.StatementBalance.StringFixed(2))
	}
	fmt.Println()

	shown := len(result.Candidates)
	if limit > 0 && shown > limit {
		shown = limit
	}
	for _, c := range result.Candidates[:shown] {
		printCandidate(c)
	}
	if shown < len(result.Candidates) {
		fmt.Printf("... and %d more\n", len(result.Candidates)-shown)
	}

	if showWarnings && len(result.Warnings) > 0 {
		fmt.Println()
		for _, w := range result.Warnings {
			fmt.Printf("%s line %d: %s\n", color.YellowString("skip"), w.Line, w.Reason)
		}
	}
	return nil
}

func printCandidate(c *domain.CandidateTransaction) {
	amount := color.RedString("-%s", c.Amount.StringFixed(2))
	if c.Direction == domain.DirectionIncome {
		amount = color.GreenString("+%s", c.Amount.StringFixed(2))
	}

	merchant := ""
	if c.Merchant != "" {
		merchant = color.New(color.Faint).Sprintf("  [%s]", c.Merchant)
	}
	fmt.Printf("%s  %12s  %s%s\n", c.TxnDate.Format("2006-01-02"), amount, c.Description, merchant)
}
