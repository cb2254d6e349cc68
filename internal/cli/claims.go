package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decision-ledger/internal/model"
)

var (
	claimSearch       string
	claimJurisdiction string
	claimProductLine  string
)

// claimsCmd lists claims from the fixtures
var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List claims available for evaluation",
	Example: `  ledger claims
  ledger claims --search 005
  ledger claims --jurisdiction CH -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		claims, err := a.store.Claims(model.CatalogFilter{
			Jurisdiction: claimJurisdiction,
			ProductLine:  claimProductLine,
			Search:       claimSearch,
		})
		if err != nil {
			return err
		}

		if a.format() == "json" {
			summaries := make([]model.ClaimSummary, 0, len(claims))
			for _, c := range claims {
				summaries = append(summaries, c.Summary())
			}
			return printJSON(summaries)
		}

		if len(claims) == 0 {
			fmt.Fprintln(os.Stderr, "No claims match")
			return nil
		}
		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "CLAIM\tJURISDICTION\tPRODUCT\tLOSS DATE\tSTATUS\tITEMS\tUNKNOWN FACTS")
		for _, c := range claims {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
				c.ClaimID, c.Jurisdiction, c.ProductLine, c.LossDate, c.Status, len(c.LineItems), len(c.UnknownFacts()))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	claimsCmd.Flags().StringVar(&claimSearch, "search", "", "match claim IDs containing this text")
	claimsCmd.Flags().StringVar(&claimJurisdiction, "jurisdiction", "", "filter by jurisdiction")
	claimsCmd.Flags().StringVar(&claimProductLine, "product-line", "", "filter by product line")
}
