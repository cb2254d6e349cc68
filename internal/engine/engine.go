package engine

import (
	"fmt"
	"math"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// Catalogs carries the optional catalogs of a run. A nil set is valid.
// Catalog defaults never reach the accessory phase directly; they become
// explicit inputs through DefaultInputs.
type Catalogs struct {
	Interpretations *model.InterpretationSet
	Assumptions     *model.AssumptionSet
}

// DefaultResolution returns the recommended resolution for factID, or
// fallback when no assumption covers the fact or it recommends nothing
func (c Catalogs) DefaultResolution(factID, fallback string) string {
	if a, ok := c.Assumptions.ForFact(factID); ok && a.RecommendedResolution != "" {
		return a.RecommendedResolution
	}
	return fallback
}

// Engine evaluates claims with the fixed seven phase sequence.
// It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine creates a new engine
func NewEngine() *Engine {
	return &Engine{}
}

// evaluation is the working state threaded through the phases of one run
type evaluation struct {
	claim    model.Claim
	resolved []model.ResolvedAssumption
	selected []model.SelectedInterpretation

	breakdown  []model.PayoutItem
	gross      float64
	deductible float64
	net        float64
	status     model.DecisionStatus
}

// stepFunc fills the phase specific part of a trace step
type stepFunc func(ev *evaluation, step *model.TraceStep)

var phaseSteps = [PhaseCount + 1]stepFunc{
	PhaseIdentifyLineItems:  identifyLineItems,
	PhaseEvaluateFacts:      evaluateFacts,
	PhaseApplyAssumptions:   applyAssumptions,
	PhaseBaseRepairCoverage: baseRepairCoverage,
	PhaseAccessoryCoverage:  accessoryCoverageStep,
	PhaseApplyDeductible:    applyDeductible,
	PhaseFinalDecision:      finalDecision,
}

// Evaluate runs every phase in order and returns the outcome with its trace.
// The result depends only on claim, resolved and selected: a missing
// selection or resolution falls back to INCLUDED_IF_DECLARED and
// NOT_DECLARED whatever the catalogs say, so replaying a run against a
// reloaded catalog changes nothing but the perturbed input.
func (e *Engine) Evaluate(
	claim model.Claim,
	catalogs Catalogs,
	resolved []model.ResolvedAssumption,
	selected []model.SelectedInterpretation,
) (model.DecisionOutcome, []model.TraceStep) {
	ev := &evaluation{
		claim:     claim,
		resolved:  resolved,
		selected:  selected,
		breakdown: make([]model.PayoutItem, 0, len(claim.LineItems)),
	}

	trace := make([]model.TraceStep, 0, PhaseCount)
	for _, phase := range Phases() {
		step := model.TraceStep{
			StepID:       phase.StepID(),
			StepNumber:   phase.Number(),
			Label:        phase.Label(),
			Description:  phase.Description(),
			InputsUsed:   []string{},
			RuleRefs:     []string{},
			EvidenceRefs: []string{},
		}
		phaseSteps[phase](ev, &step)
		trace = append(trace, step)
	}

	outcome := model.DecisionOutcome{
		Approved:          ev.status != model.StatusDenied,
		Status:            ev.status,
		PayoutTotal:       ev.net,
		PayoutBreakdown:   ev.breakdown,
		DeductibleApplied: ev.deductible,
	}

	return outcome, trace
}

func identifyLineItems(ev *evaluation, step *model.TraceStep) {
	n := len(ev.claim.LineItems)
	step.InputsUsed = []string{fmt.Sprintf("claim.line_items (%d items)", n)}
	step.RuleRefs = []string{RuleLineItemExtraction}
	step.Output = fmt.Sprintf("Found %d line items to evaluate", n)
}

func evaluateFacts(ev *evaluation, step *model.TraceStep) {
	unknown := len(ev.claim.UnknownFacts())
	step.InputsUsed = []string{fmt.Sprintf("claim.facts (%d facts)", len(ev.claim.Facts))}
	step.RuleRefs = []string{RuleFactEvaluation}
	step.Output = fmt.Sprintf("Found %d unknown facts requiring assumptions", unknown)
}

func applyAssumptions(ev *evaluation, step *model.TraceStep) {
	n := len(ev.resolved)
	step.InputsUsed = []string{fmt.Sprintf("resolved_assumptions (%d resolutions)", n)}
	step.RuleRefs = []string{RuleAssumptionApplication}
	step.Output = fmt.Sprintf("Applied %d assumption resolutions", n)
}

func baseRepairCoverage(ev *evaluation, step *model.TraceStep) {
	var total float64
	for _, item := range ev.claim.ItemsIn(model.CategoryRepair) {
		total += item.Amount
		ev.breakdown = append(ev.breakdown, model.PayoutItem{
			ItemID:        item.ItemID,
			Label:         item.Label,
			CoveredAmount: item.Amount,
			Notes:         NoteBaseRepair,
		})
	}
	ev.gross += total

	value := FormatAmount(total)
	step.InputsUsed = []string{"claim.line_items[category=repair]", "policy.base_coverage"}
	step.RuleRefs = []string{RuleBaseRepairCoverage, RuleStandardCoverage}
	step.EvidenceRefs = []string{model.EvidenceRepairEstimate}
	step.Output = "Base repair covered: " + FormatMoney(total)
	step.OutputValue = &value
}

func accessoryCoverageStep(ev *evaluation, step *model.TraceStep) {
	option, ok := SelectedOption(ev.selected, DPAccessoryCoverage)
	if !ok {
		option = OptionIncludedIfDeclared
	}
	declared, ok := ResolvedValue(ev.resolved, FactAccessoryDeclared)
	if !ok {
		declared = ResolutionNotDeclared
	}

	covered, reason := accessoryCoverage(option, declared)

	items := ev.claim.ItemsIn(model.CategoryAccessory)
	var coveredTotal float64
	for _, item := range items {
		amount := 0.0
		if covered {
			amount = item.Amount
		}
		coveredTotal += amount
		ev.breakdown = append(ev.breakdown, model.PayoutItem{
			ItemID:        item.ItemID,
			Label:         item.Label,
			CoveredAmount: amount,
			Notes:         reason,
		})
	}
	ev.gross += coveredTotal

	answer := "No"
	if covered {
		answer = "Yes"
	}
	value := FormatAmount(coveredTotal)
	step.InputsUsed = []string{
		fmt.Sprintf("%s = %s", DPAccessoryCoverage, option),
		fmt.Sprintf("%s = %s (assumed)", FactAccessoryDeclared, declared),
	}
	step.RuleRefs = []string{RuleAccessoryCoverage, DPAccessoryCoverage + "." + option}
	if len(items) > 0 {
		step.EvidenceRefs = []string{model.EvidenceTowBarInvoice}
	}
	step.Output = fmt.Sprintf("Accessory covered: %s (%s)", answer, FormatMoney(coveredTotal))
	step.OutputValue = &value
}

func applyDeductible(ev *evaluation, step *model.TraceStep) {
	ev.deductible = math.Min(Deductible, ev.gross)
	ev.net = math.Max(0, ev.gross-ev.deductible)

	value := FormatAmount(ev.net)
	step.InputsUsed = []string{
		"gross_payout = " + FormatMoney(ev.gross),
		"deductible = " + FormatMoney(ev.deductible),
	}
	step.RuleRefs = []string{RuleDeductible}
	step.EvidenceRefs = []string{model.EvidencePolicySchedule}
	step.Output = "Net payout after deductible: " + FormatMoney(ev.net)
	step.OutputValue = &value
}

func finalDecision(ev *evaluation, step *model.TraceStep) {
	ev.status = classify(ev.net, ev.gross, ev.deductible)

	value := string(ev.status)
	step.InputsUsed = []string{"net_payout = " + FormatMoney(ev.net)}
	step.RuleRefs = []string{RuleFinalDecision}
	step.Output = fmt.Sprintf("Decision: %s - %s", ev.status, FormatMoney(ev.net))
	step.OutputValue = &value
}
