package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/receipt"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printRun renders a run in the configured output format
func printRun(format string, run *model.DecisionRun, warnings []model.Issue) error {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", w)
	}

	switch format {
	case "json":
		return receipt.Render(os.Stdout, run, nil, receipt.FormatJSON)
	case "md":
		return receipt.Render(os.Stdout, run, nil, receipt.FormatMarkdown)
	}

	fmt.Printf("Run %s  claim %s  by %s  at %s\n", run.RunID, run.ClaimID, run.GeneratedByRole, run.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("Catalogs: %s (%s), %s (%s)\n",
		run.InterpretationSetID, run.InterpretationSetVersion, run.AssumptionSetID, run.AssumptionSetVersion)
	fmt.Printf("Outcome: %s  payout %s  deductible %s\n\n",
		run.Outcome.Status, engine.FormatMoney(run.Outcome.PayoutTotal), engine.FormatMoney(run.Outcome.DeductibleApplied))

	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "STEP\tLABEL\tOUTPUT")
	for _, step := range run.TraceSteps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", step.StepID, step.Label, step.Output)
	}
	return tw.Flush()
}

func printRuns(format string, runs []*model.DecisionRun) error {
	if format == "json" {
		return printJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "No runs recorded")
		return nil
	}
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "RUN\tCLAIM\tSTATUS\tPAYOUT\tROLE\tTIMESTAMP")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.RunID, run.ClaimID, run.Outcome.Status, engine.FormatAmount(run.Outcome.PayoutTotal),
			run.GeneratedByRole, run.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printCounterfactual(format string, base *model.DecisionRun, cf *model.CounterfactualResult) error {
	switch format {
	case "json":
		return printJSON(cf)
	case "md":
		return receipt.Render(os.Stdout, base, cf, receipt.FormatMarkdown)
	}

	fmt.Printf("Base run %s: %s %s\n", cf.BaseRunID, base.Outcome.Status, engine.FormatMoney(base.Outcome.PayoutTotal))
	fmt.Printf("Change:   %s %s %q -> %q\n", cf.ChangeType, cf.ChangeRef, cf.OriginalValue, cf.NewValue)
	fmt.Printf("New:      %s %s\n", cf.NewOutcome.Status, engine.FormatMoney(cf.NewOutcome.PayoutTotal))
	fmt.Printf("Delta:    %s\n", engine.FormatMoney(cf.Delta))
	printDivergence(cf.TraceDiff)
	return nil
}

func printDivergence(d model.TraceDivergence) {
	fmt.Println(d.Summary)
	if d.Diverged {
		fmt.Printf("  before: %s\n", d.OriginalOutput)
		fmt.Printf("  after:  %s\n", d.NewOutput)
	}
}

func printStudy(format string, study *model.QAStudyResult) error {
	if format == "json" {
		return printJSON(study)
	}

	fmt.Printf("Cohort %s (%s) x %s (%s)\n", study.CohortID, study.CohortLabel, study.ProposalID, study.ProposalLabel)
	fmt.Printf("Evaluated %d claims, %d impacted, total delta %s\n",
		study.EvaluatedClaims, study.ImpactedClaimsCount, engine.FormatMoney(study.TotalDeltaPayout))
	if len(study.Flags) > 0 {
		flags := make([]string, len(study.Flags))
		for i, f := range study.Flags {
			flags[i] = string(f)
		}
		fmt.Printf("Flags: %s\n", strings.Join(flags, ", "))
	}
	for _, e := range study.Errors {
		fmt.Fprintf(os.Stderr, "⚠ %s\n", e)
	}

	if len(study.TopImpactedClaims) == 0 {
		return nil
	}
	fmt.Println()
	tw := newTable(os.Stdout)
	fmt.Fprintln(tw, "CLAIM\tDELTA")
	for _, c := range study.TopImpactedClaims {
		fmt.Fprintf(tw, "%s\t%s\n", c.ClaimID, engine.FormatAmount(c.Delta))
	}
	return tw.Flush()
}
