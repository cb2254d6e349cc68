package engine

import "github.com/ppiankov/decision-ledger/internal/model"

// Policy constants for the motor/casco product
const (
	Deductible        = 500.0
	ApprovalThreshold = 0.9
	Currency          = "CHF"
)

// Decision point and fact identifiers consulted by the accessory phase
const (
	DPAccessoryCoverage   = "DP.ACCESSORY_COVERAGE"
	FactAccessoryDeclared = "FACT.ACCESSORY_DECLARED"
)

// Options of DP.ACCESSORY_COVERAGE
const (
	OptionIncludedIfDeclared = "INCLUDED_IF_DECLARED"
	OptionIncludedByDefault  = "INCLUDED_BY_DEFAULT"
	OptionExcluded           = "EXCLUDED"
)

// Resolutions of FACT.ACCESSORY_DECLARED
const (
	ResolutionDeclared    = "DECLARED"
	ResolutionNotDeclared = "NOT_DECLARED"
)

// Rule references emitted into the trace
const (
	RuleLineItemExtraction    = "RULE.LINE_ITEM_EXTRACTION"
	RuleFactEvaluation        = "RULE.FACT_EVALUATION"
	RuleAssumptionApplication = "RULE.ASSUMPTION_APPLICATION"
	RuleBaseRepairCoverage    = "RULE.BASE_REPAIR_COVERAGE"
	RuleStandardCoverage      = "DP.STANDARD_COVERAGE"
	RuleAccessoryCoverage     = "RULE.ACCESSORY_COVERAGE"
	RuleDeductible            = "RULE.DEDUCTIBLE_APPLICATION"
	RuleFinalDecision         = "RULE.FINAL_DECISION"
)

// Coverage reasons attached to payout breakdown entries
const (
	NoteBaseRepair           = "Base repair - covered under standard policy"
	NoteAccessoryByDefault   = "Interpretation: accessories included by default"
	NoteAccessoryExcluded    = "Interpretation: accessories excluded from coverage"
	NoteAccessoryDeclared    = "Accessory was declared (assumed) - covered"
	NoteAccessoryNotDeclared = "Accessory was not declared (assumed) - not covered"
)

// accessoryCoverage resolves the three-way accessory rule.
// An unrecognised option is not covered and carries no reason.
func accessoryCoverage(option, declared string) (covered bool, reason string) {
	switch option {
	case OptionIncludedByDefault:
		return true, NoteAccessoryByDefault
	case OptionExcluded:
		return false, NoteAccessoryExcluded
	case OptionIncludedIfDeclared:
		if declared == ResolutionDeclared {
			return true, NoteAccessoryDeclared
		}
		return false, NoteAccessoryNotDeclared
	default:
		return false, ""
	}
}

// classify maps the net payout to a decision status.
// The approval ratio is taken against the covered amount net of the
// deductible. Evaluate always passes net = gross - deductible when net is
// positive, so it never produces StatusPartial; the branch only fires for
// callers whose net falls below ApprovalThreshold of that amount.
func classify(net, gross, deductible float64) model.DecisionStatus {
	if net <= 0 {
		return model.StatusDenied
	}
	if net >= ApprovalThreshold*(gross-deductible) {
		return model.StatusApproved
	}
	return model.StatusPartial
}
