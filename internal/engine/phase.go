package engine

import "fmt"

// Phase identifies one step of the fixed evaluation sequence.
// Step numbers are part of the trace contract: counterfactual diffs compare
// traces position by position, so phases are never reordered or skipped.
type Phase int

const (
	PhaseIdentifyLineItems Phase = iota + 1
	PhaseEvaluateFacts
	PhaseApplyAssumptions
	PhaseBaseRepairCoverage
	PhaseAccessoryCoverage
	PhaseApplyDeductible
	PhaseFinalDecision
)

// PhaseCount is the number of steps every trace contains
const PhaseCount = 7

var phaseText = [PhaseCount + 1]struct {
	label       string
	description string
}{
	PhaseIdentifyLineItems:  {"Identify Line Items", "Extract claimable line items from the claim"},
	PhaseEvaluateFacts:      {"Evaluate Facts", "Check known vs unknown facts"},
	PhaseApplyAssumptions:   {"Apply Assumptions", "Resolve unknown facts using governed assumptions"},
	PhaseBaseRepairCoverage: {"Evaluate Base Repair Coverage", "Assess standard repair items against policy coverage"},
	PhaseAccessoryCoverage:  {"Evaluate Accessory Coverage", "Assess accessory items using interpretation and assumed facts"},
	PhaseApplyDeductible:    {"Apply Deductible", "Subtract policy deductible from gross payout"},
	PhaseFinalDecision:      {"Final Decision", "Determine final claim status and payout"},
}

// Phases returns the evaluation sequence in order
func Phases() []Phase {
	phases := make([]Phase, 0, PhaseCount)
	for p := PhaseIdentifyLineItems; p <= PhaseFinalDecision; p++ {
		phases = append(phases, p)
	}
	return phases
}

// Valid reports whether p is a member of the sequence
func (p Phase) Valid() bool {
	return p >= PhaseIdentifyLineItems && p <= PhaseFinalDecision
}

// Number is the 1-indexed step number of the phase
func (p Phase) Number() int {
	return int(p)
}

// StepID is the stable trace identifier, e.g. "STEP-5"
func (p Phase) StepID() string {
	return fmt.Sprintf("STEP-%d", int(p))
}

// Label is the short human-readable name of the phase
func (p Phase) Label() string {
	if !p.Valid() {
		return ""
	}
	return phaseText[p].label
}

// Description explains what the phase evaluates
func (p Phase) Description() string {
	if !p.Valid() {
		return ""
	}
	return phaseText[p].description
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return p.Label()
}
