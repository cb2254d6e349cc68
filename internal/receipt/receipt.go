// Package receipt renders a stored decision run for humans (Markdown) and
// machines (JSON).
package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Format selects the receipt encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts json, md and markdown; empty means JSON
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", &model.ValidationError{Issues: []model.Issue{
			{Field: "format", Message: fmt.Sprintf("unsupported receipt format %q (json, md)", s)},
		}}
	}
}

// Versions pins the catalogs a run was evaluated against
type Versions struct {
	InterpretationSetID      string `json:"interpretation_set_id"`
	InterpretationSetVersion string `json:"interpretation_set_version"`
	AssumptionSetID          string `json:"assumption_set_id"`
	AssumptionSetVersion     string `json:"assumption_set_version"`
}

// Receipt is the JSON shape of a rendered run
type Receipt struct {
	RunID           string                         `json:"run_id"`
	ClaimID         string                         `json:"claim_id"`
	Timestamp       time.Time                      `json:"timestamp"`
	GeneratedByRole model.Role                     `json:"generated_by_role"`
	Outcome         model.DecisionOutcome          `json:"outcome"`
	GrossPayout     float64                        `json:"gross_payout"`
	Versions        Versions                       `json:"versions"`
	Assumptions     []model.ResolvedAssumption     `json:"resolved_assumptions"`
	Interpretations []model.SelectedInterpretation `json:"selected_interpretations"`
	Trace           []model.TraceStep              `json:"trace_steps"`
	Counterfactual  *model.CounterfactualResult    `json:"counterfactual,omitempty"`
}

// New builds a receipt; cf may be nil
func New(run *model.DecisionRun, cf *model.CounterfactualResult) *Receipt {
	return &Receipt{
		RunID:           run.RunID,
		ClaimID:         run.ClaimID,
		Timestamp:       run.Timestamp,
		GeneratedByRole: run.GeneratedByRole,
		Outcome:         run.Outcome,
		GrossPayout:     run.Outcome.GrossPayout(),
		Versions: Versions{
			InterpretationSetID:      run.InterpretationSetID,
			InterpretationSetVersion: run.InterpretationSetVersion,
			AssumptionSetID:          run.AssumptionSetID,
			AssumptionSetVersion:     run.AssumptionSetVersion,
		},
		Assumptions:     run.ResolvedAssumptions,
		Interpretations: run.SelectedInterpretations,
		Trace:           run.TraceSteps,
		Counterfactual:  cf,
	}
}

// Render writes the receipt in the requested format
func Render(w io.Writer, run *model.DecisionRun, cf *model.CounterfactualResult, format Format) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(run, cf))
		return err
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(New(run, cf))
	default:
		return fmt.Errorf("unsupported receipt format: %s", format)
	}
}

// Markdown renders the run as a Markdown document
func Markdown(run *model.DecisionRun, cf *model.CounterfactualResult) string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Decision Receipt %s\n\n", run.RunID))
	buf.WriteString(fmt.Sprintf("- Claim: `%s`\n", run.ClaimID))
	buf.WriteString(fmt.Sprintf("- Generated: %s by %s\n", run.Timestamp.UTC().Format(time.RFC3339), run.GeneratedByRole))
	buf.WriteString(fmt.Sprintf("- Interpretation set: `%s` (%s)\n", run.InterpretationSetID, run.InterpretationSetVersion))
	buf.WriteString(fmt.Sprintf("- Assumption set: `%s` (%s)\n\n", run.AssumptionSetID, run.AssumptionSetVersion))

	buf.WriteString("## Outcome\n\n")
	buf.WriteString(fmt.Sprintf("**%s**: %s payable\n\n", run.Outcome.Status, engine.FormatMoney(run.Outcome.PayoutTotal)))
	buf.WriteString("| Item | Label | Covered | Notes |\n")
	buf.WriteString("|---|---|---:|---|\n")
	for _, item := range run.Outcome.PayoutBreakdown {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			item.ItemID, cell(item.Label), engine.FormatAmount(item.CoveredAmount), cell(item.Notes)))
	}
	buf.WriteString(fmt.Sprintf("| | Gross | %s | |\n", engine.FormatAmount(run.Outcome.GrossPayout())))
	buf.WriteString(fmt.Sprintf("| | Deductible | -%s | |\n", engine.FormatAmount(run.Outcome.DeductibleApplied)))
	buf.WriteString(fmt.Sprintf("| | **Net payout** | **%s** | |\n\n", engine.FormatAmount(run.Outcome.PayoutTotal)))

	if len(run.ResolvedAssumptions) > 0 || len(run.SelectedInterpretations) > 0 {
		buf.WriteString("## Inputs\n\n")
		for _, ra := range run.ResolvedAssumptions {
			buf.WriteString(fmt.Sprintf("- Assumption `%s` = `%s` (%s)\n", ra.FactID, ra.ChosenResolution, ra.ChosenByRole))
		}
		for _, si := range run.SelectedInterpretations {
			buf.WriteString(fmt.Sprintf("- Interpretation `%s` = `%s`\n", si.DecisionPointID, si.Option))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Trace\n\n")
	buf.WriteString("| Step | Label | Output | Rules | Evidence |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, step := range run.TraceSteps {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			step.StepID, cell(step.Label), cell(step.Output),
			cell(strings.Join(step.RuleRefs, ", ")), cell(strings.Join(step.EvidenceRefs, ", "))))
	}
	buf.WriteString("\n")

	if cf != nil {
		buf.WriteString("## Counterfactual\n\n")
		buf.WriteString(fmt.Sprintf("- Change: %s `%s` from `%s` to `%s`\n", cf.ChangeType, cf.ChangeRef, cf.OriginalValue, cf.NewValue))
		buf.WriteString(fmt.Sprintf("- New outcome: %s, %s\n", cf.NewOutcome.Status, engine.FormatMoney(cf.NewOutcome.PayoutTotal)))
		buf.WriteString(fmt.Sprintf("- Delta: %s\n", signed(cf.Delta)))
		buf.WriteString(fmt.Sprintf("- %s\n\n", cf.TraceDiff.Summary))
	}

	return buf.String()
}

// cell escapes pipes and newlines so text stays inside a table cell
func cell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

func signed(v float64) string {
	if v > 0 {
		return "+" + engine.FormatMoney(v)
	}
	return engine.FormatMoney(v)
}
