package model

import "time"

// DecisionStatus is the tri-state classification of an outcome
type DecisionStatus string

const (
	StatusApproved DecisionStatus = "Approved"
	StatusPartial  DecisionStatus = "Partial"
	StatusDenied   DecisionStatus = "Denied"
)

// PayoutItem is the coverage decision for one line item
type PayoutItem struct {
	ItemID        string  `json:"item_id"`
	Label         string  `json:"label"`
	CoveredAmount float64 `json:"covered_amount"`
	Notes         string  `json:"notes"`
}

// DecisionOutcome is the monetary result of an evaluation
// Invariant: PayoutTotal = sum(PayoutBreakdown.CoveredAmount) - DeductibleApplied >= 0
type DecisionOutcome struct {
	Approved          bool           `json:"approved"`
	Status            DecisionStatus `json:"status"`
	PayoutTotal       float64        `json:"payout_total"`
	PayoutBreakdown   []PayoutItem   `json:"payout_breakdown"`
	DeductibleApplied float64        `json:"deductible_applied"`
}

// GrossPayout sums the covered amounts before the deductible
func (o DecisionOutcome) GrossPayout() float64 {
	var gross float64
	for _, item := range o.PayoutBreakdown {
		gross += item.CoveredAmount
	}
	return gross
}

// ResolvedAssumption binds an unknown fact to a chosen resolution
type ResolvedAssumption struct {
	AssumptionID     string  `json:"assumption_id"`
	FactID           string  `json:"fact_id" validate:"required"`
	FactLabel        string  `json:"fact_label"`
	ChosenResolution string  `json:"chosen_resolution" validate:"required"`
	ChosenByRole     Role    `json:"chosen_by_role"`
	Reason           *string `json:"reason,omitempty"`
}

// SelectedInterpretation binds a decision point to a chosen option
type SelectedInterpretation struct {
	DecisionPointID string `json:"decision_point_id" validate:"required"`
	Option          string `json:"option" validate:"required"`
}

// TraceStep is one append-only entry of the evaluation audit trail
type TraceStep struct {
	StepID       string   `json:"step_id"`
	StepNumber   int      `json:"step_number"`
	Label        string   `json:"label"`
	Description  string   `json:"description"`
	InputsUsed   []string `json:"inputs_used"`
	RuleRefs     []string `json:"rule_refs"`
	EvidenceRefs []string `json:"evidence_refs"`
	Output       string   `json:"output"`
	OutputValue  *string  `json:"output_value,omitempty"`
}

// TraceDivergence locates the first differing step between two traces
type TraceDivergence struct {
	ChangedStepID     string `json:"changed_step_id"`
	ChangedStepNumber int    `json:"changed_step_number"`
	OriginalOutput    string `json:"original_output"`
	NewOutput         string `json:"new_output"`
	Summary           string `json:"summary"`
	Diverged          bool   `json:"diverged"`
}

// DecisionRun is the immutable ledger entry for one evaluation
type DecisionRun struct {
	RunID                    string                   `json:"run_id"`
	ClaimID                  string                   `json:"claim_id"`
	Timestamp                time.Time                `json:"timestamp"`
	InterpretationSetID      string                   `json:"interpretation_set_id"`
	InterpretationSetVersion string                   `json:"interpretation_set_version"`
	AssumptionSetID          string                   `json:"assumption_set_id"`
	AssumptionSetVersion     string                   `json:"assumption_set_version"`
	ResolvedAssumptions      []ResolvedAssumption     `json:"resolved_assumptions"`
	SelectedInterpretations  []SelectedInterpretation `json:"selected_interpretations"`
	Outcome                  DecisionOutcome          `json:"outcome"`
	TraceSteps               []TraceStep              `json:"trace_steps"`
	GeneratedByRole          Role                     `json:"generated_by_role"`
}

// UnknownVersion marks a catalog that was not available for a run
const UnknownVersion = "unknown"

// DecisionRunRequest asks for a new evaluation of a claim
type DecisionRunRequest struct {
	ClaimID                 string                   `json:"claim_id" validate:"required"`
	InterpretationSetID     string                   `json:"interpretation_set_id"`
	AssumptionSetID         string                   `json:"assumption_set_id"`
	ResolvedAssumptions     []ResolvedAssumption     `json:"resolved_assumptions" validate:"dive"`
	SelectedInterpretations []SelectedInterpretation `json:"selected_interpretations" validate:"dive"`
	Role                    Role                     `json:"role" validate:"required"`
}

// ChangeKind names the input perturbed by a counterfactual
type ChangeKind string

const (
	ChangeAssumption     ChangeKind = "ASSUMPTION"
	ChangeInterpretation ChangeKind = "INTERPRETATION"
)

// CounterfactualRequest describes a single-field perturbation of a stored run
type CounterfactualRequest struct {
	BaseRunID     string     `json:"base_run_id" validate:"required"`
	ChangeType    ChangeKind `json:"change_type" validate:"oneof=ASSUMPTION INTERPRETATION"`
	ChangeRef     string     `json:"change_ref" validate:"required"`
	OriginalValue string     `json:"original_value"`
	NewValue      string     `json:"new_value" validate:"required"`
}

// CounterfactualResult is the ephemeral outcome of a what-if replay
type CounterfactualResult struct {
	BaseRunID     string          `json:"base_run_id"`
	ChangeType    ChangeKind      `json:"change_type"`
	ChangeRef     string          `json:"change_ref"`
	OriginalValue string          `json:"original_value"`
	NewValue      string          `json:"new_value"`
	NewOutcome    DecisionOutcome `json:"new_outcome"`
	NewTrace      []TraceStep     `json:"new_trace,omitempty"`
	Delta         float64         `json:"delta"`
	TraceDiff     TraceDivergence `json:"trace_diff"`
}

// RunQuery filters ledger listings
type RunQuery struct {
	ClaimID string
	Role    Role
	Limit   int
}

// Clone returns a deep copy so stored runs cannot be mutated through aliases
func (r *DecisionRun) Clone() *DecisionRun {
	if r == nil {
		return nil
	}
	c := *r
	c.ResolvedAssumptions = CloneResolved(r.ResolvedAssumptions)
	c.SelectedInterpretations = CloneSelected(r.SelectedInterpretations)
	if r.Outcome.PayoutBreakdown != nil {
		c.Outcome.PayoutBreakdown = make([]PayoutItem, len(r.Outcome.PayoutBreakdown))
		copy(c.Outcome.PayoutBreakdown, r.Outcome.PayoutBreakdown)
	}
	c.TraceSteps = CloneTrace(r.TraceSteps)
	return &c
}

// CloneResolved deep-copies a resolution list
func CloneResolved(in []ResolvedAssumption) []ResolvedAssumption {
	if in == nil {
		return nil
	}
	out := make([]ResolvedAssumption, len(in))
	for i, ra := range in {
		out[i] = ra
		if ra.Reason != nil {
			reason := *ra.Reason
			out[i].Reason = &reason
		}
	}
	return out
}

// CloneSelected copies a selection list
func CloneSelected(in []SelectedInterpretation) []SelectedInterpretation {
	if in == nil {
		return nil
	}
	out := make([]SelectedInterpretation, len(in))
	copy(out, in)
	return out
}

// CloneTrace deep-copies a trace
func CloneTrace(in []TraceStep) []TraceStep {
	if in == nil {
		return nil
	}
	out := make([]TraceStep, len(in))
	for i, step := range in {
		out[i] = step
		out[i].InputsUsed = cloneStrings(step.InputsUsed)
		out[i].RuleRefs = cloneStrings(step.RuleRefs)
		out[i].EvidenceRefs = cloneStrings(step.EvidenceRefs)
		if step.OutputValue != nil {
			v := *step.OutputValue
			out[i].OutputValue = &v
		}
	}
	return out
}

// cloneStrings copies s, keeping nil and empty distinct
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
