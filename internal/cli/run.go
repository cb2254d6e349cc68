package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/model"
)

var (
	runAssume         []string
	runInterpret      []string
	runRole           string
	runInterpretation string
	runAssumptionSet  string
	runMarkdown       bool
)

// runCmd evaluates a claim and appends the run to the ledger
var runCmd = &cobra.Command{
	Use:   "run <claim-id>",
	Short: "Evaluate a claim and record the decision",
	Long: `Evaluate a claim with the deterministic engine and append the run, with its
seven-step trace, to the ledger.

Unknown facts default to the assumption set's recommended resolution and
decision points to the interpretation set's default option. Override them
with --assume and --interpret.`,
	Example: `  ledger run CLM-CH-001
  ledger run CLM-CH-001 --assume FACT.ACCESSORY_DECLARED=DECLARED --role Supervisor
  ledger run CLM-CH-001 --interpret DP.ACCESSORY_COVERAGE=INCLUDED_BY_DEFAULT --md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := buildRunRequest(a, args[0])
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Evaluating %s against %s / %s\n", req.ClaimID, req.InterpretationSetID, req.AssumptionSetID)
		}

		result, err := a.decisions.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		format := a.format()
		if runMarkdown {
			format = "md"
		}
		return printRun(format, result.DecisionRun, result.Warnings)
	},
}

// buildRunRequest starts from the catalog defaults and applies the flags
func buildRunRequest(a *app, claimID string) (model.DecisionRunRequest, error) {
	claim, err := a.store.Claim(claimID)
	if err != nil {
		return model.DecisionRunRequest{}, err
	}

	isID, asID := runInterpretation, runAssumptionSet
	if isID == "" || asID == "" {
		activeIS, activeAS, err := catalog.ActiveSets(a.store, *claim)
		if err != nil {
			return model.DecisionRunRequest{}, err
		}
		if isID == "" {
			isID = activeIS
		}
		if asID == "" {
			asID = activeAS
		}
	}

	resolved, selected, err := a.decisions.Defaults(claimID, isID, asID)
	if err != nil {
		return model.DecisionRunRequest{}, err
	}

	role := model.Role(runRole)
	for i := range resolved {
		resolved[i].ChosenByRole = role
	}

	for _, kv := range runAssume {
		factID, value, err := splitPair("--assume", kv)
		if err != nil {
			return model.DecisionRunRequest{}, err
		}
		resolved = setResolution(resolved, factID, value, role)
	}
	for _, kv := range runInterpret {
		dpID, option, err := splitPair("--interpret", kv)
		if err != nil {
			return model.DecisionRunRequest{}, err
		}
		selected = setSelection(selected, dpID, option)
	}

	return model.DecisionRunRequest{
		ClaimID:                 claimID,
		InterpretationSetID:     isID,
		AssumptionSetID:         asID,
		ResolvedAssumptions:     resolved,
		SelectedInterpretations: selected,
		Role:                    role,
	}, nil
}

func splitPair(flag, kv string) (string, string, error) {
	key, value, ok := strings.Cut(kv, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("%s expects KEY=VALUE, got %q", flag, kv)
	}
	return key, value, nil
}

func setResolution(resolved []model.ResolvedAssumption, factID, value string, role model.Role) []model.ResolvedAssumption {
	for i := range resolved {
		if resolved[i].FactID == factID {
			resolved[i].ChosenResolution = value
			resolved[i].ChosenByRole = role
			return resolved
		}
	}
	return append(resolved, model.ResolvedAssumption{FactID: factID, ChosenResolution: value, ChosenByRole: role})
}

func setSelection(selected []model.SelectedInterpretation, dpID, option string) []model.SelectedInterpretation {
	for i := range selected {
		if selected[i].DecisionPointID == dpID {
			selected[i].Option = option
			return selected
		}
	}
	return append(selected, model.SelectedInterpretation{DecisionPointID: dpID, Option: option})
}

var runsClaim string
var runsLimit int

// runsCmd lists recorded runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded decision runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.decisions.List(cmd.Context(), runsClaim, runsLimit)
		if err != nil {
			return err
		}
		return printRuns(a.format(), runs)
	},
}

// showCmd prints one run
var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run with its trace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.decisions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printRun(a.format(), run, nil)
	},
}

var (
	cfKind string
	cfRef  string
	cfTo   string
	cfFrom string
)

// counterfactualCmd replays a run with one input changed
var counterfactualCmd = &cobra.Command{
	Use:   "counterfactual <run-id>",
	Short: "Replay a run with one assumption or interpretation changed",
	Long: `Replay a recorded run with a single input changed and report the new
outcome, the payout delta and the first trace step that diverged.

The replay is not recorded in the ledger.`,
	Example: `  ledger counterfactual RUN-1A2B3C4D --kind ASSUMPTION --ref FACT.ACCESSORY_DECLARED --to DECLARED
  ledger counterfactual RUN-1A2B3C4D --kind INTERPRETATION --ref DP.ACCESSORY_COVERAGE --to EXCLUDED`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		base, err := a.decisions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		result, err := a.decisions.Counterfactual(cmd.Context(), model.CounterfactualRequest{
			BaseRunID:     base.RunID,
			ChangeType:    model.ChangeKind(strings.ToUpper(cfKind)),
			ChangeRef:     cfRef,
			OriginalValue: cfFrom,
			NewValue:      cfTo,
		})
		if err != nil {
			return err
		}
		return printCounterfactual(a.format(), base, result)
	},
}

// diffCmd compares the traces of two runs
var diffCmd = &cobra.Command{
	Use:   "diff <run-a> <run-b>",
	Short: "Find the first trace step where two runs diverge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		divergence, err := a.decisions.Diff(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if a.format() == "json" {
			return printJSON(divergence)
		}
		printDivergence(divergence)
		return nil
	},
}

// explainCmd asks the configured LLM to narrate a run
var explainCmd = &cobra.Command{
	Use:   "explain <run-id>",
	Short: "Narrate a recorded run in plain language (requires llm.provider)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.decisions.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		exp, err := a.explainer.Explain(cmd.Context(), run, nil)
		if err != nil {
			return err
		}
		if a.format() == "json" {
			return printJSON(exp)
		}
		fmt.Println(exp.Narrative)
		if verbose {
			fmt.Fprintf(os.Stderr, "\n(model %s, %d tokens, cached=%v)\n", exp.Model, exp.TokensUsed, exp.Cached)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd, runsCmd, showCmd, counterfactualCmd, diffCmd, explainCmd)

	runCmd.Flags().StringArrayVar(&runAssume, "assume", nil, "resolve an unknown fact, FACT=VALUE (repeatable)")
	runCmd.Flags().StringArrayVar(&runInterpret, "interpret", nil, "choose a decision point option, DP=OPTION (repeatable)")
	runCmd.Flags().StringVar(&runRole, "role", string(model.RoleAdjuster), "role recorded on the run")
	runCmd.Flags().StringVar(&runInterpretation, "interpretation-set", "", "interpretation set ID (default: the approved set for the claim)")
	runCmd.Flags().StringVar(&runAssumptionSet, "assumption-set", "", "assumption set ID (default: the approved set for the claim)")
	runCmd.Flags().BoolVar(&runMarkdown, "md", false, "print a Markdown receipt")

	runsCmd.Flags().StringVar(&runsClaim, "claim", "", "only runs for this claim")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 0, "maximum number of runs (0 = all)")

	counterfactualCmd.Flags().StringVar(&cfKind, "kind", "", "ASSUMPTION or INTERPRETATION")
	counterfactualCmd.Flags().StringVar(&cfRef, "ref", "", "fact ID, assumption ID or decision point ID to change")
	counterfactualCmd.Flags().StringVar(&cfTo, "to", "", "new value")
	counterfactualCmd.Flags().StringVar(&cfFrom, "from", "", "original value (default: read from the run)")
	_ = counterfactualCmd.MarkFlagRequired("kind")
	_ = counterfactualCmd.MarkFlagRequired("ref")
	_ = counterfactualCmd.MarkFlagRequired("to")
}
