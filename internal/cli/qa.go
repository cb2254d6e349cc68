package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/decision-ledger/internal/qa"
)

var (
	qaConcurrency    int
	qaInterpretation string
	qaAssumptionSet  string
)

// qaCmd runs an impact study of a proposed change over a cohort
var qaCmd = &cobra.Command{
	Use:   "qa <cohort-id> <proposal-id>",
	Short: "Measure the payout impact of a proposed change across a claim cohort",
	Long: `Evaluate every claim in a cohort twice, once with the baseline inputs and
once with the proposed change applied, and report the aggregate payout delta,
the most affected claims and any quality flags.`,
	Example: `  ledger qa COH-CH-MOTOR PROP-001
  ledger qa COH-CH-SMALL PROP-002 --concurrency 8 -o json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		workers := qaConcurrency
		if workers <= 0 {
			workers = a.cfg.Concurrency.Workers
		}

		study, err := a.qa.Study(cmd.Context(), args[0], args[1], qa.Options{
			InterpretationSetID: qaInterpretation,
			AssumptionSetID:     qaAssumptionSet,
			Concurrency:         workers,
		})
		if err != nil {
			return err
		}
		return printStudy(a.format(), study)
	},
}

func init() {
	rootCmd.AddCommand(qaCmd)
	qaCmd.Flags().IntVarP(&qaConcurrency, "concurrency", "c", 0, "claims evaluated in parallel (default: concurrency.workers)")
	qaCmd.Flags().StringVar(&qaInterpretation, "interpretation-set", "", "interpretation set for both sides of the study")
	qaCmd.Flags().StringVar(&qaAssumptionSet, "assumption-set", "", "assumption set for both sides of the study")
}
