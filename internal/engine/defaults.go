package engine

import "github.com/ppiankov/decision-ledger/internal/model"

// DefaultInputs builds the baseline inputs a handler would accept without
// overriding anything: the recommended resolution for every unknown fact and
// the default option of every decision point.
//
// Without catalogs the accessory rule's literal defaults are used.
func DefaultInputs(claim model.Claim, catalogs Catalogs) ([]model.ResolvedAssumption, []model.SelectedInterpretation) {
	resolved := []model.ResolvedAssumption{}
	for _, fact := range claim.UnknownFacts() {
		a, _ := catalogs.Assumptions.ForFact(fact.FactID)

		fallback := ""
		if fact.FactID == FactAccessoryDeclared {
			fallback = ResolutionNotDeclared
		}
		resolution := catalogs.DefaultResolution(fact.FactID, fallback)
		if resolution == "" {
			continue
		}

		resolved = append(resolved, model.ResolvedAssumption{
			AssumptionID:     a.AssumptionID,
			FactID:           fact.FactID,
			FactLabel:        fact.Label,
			ChosenResolution: resolution,
			ChosenByRole:     model.RoleAdjuster,
		})
	}

	selected := []model.SelectedInterpretation{}
	if catalogs.Interpretations != nil {
		for _, dp := range catalogs.Interpretations.DecisionPoints {
			if _, dup := SelectedOption(selected, dp.DecisionPointID); dup {
				continue
			}
			selected = append(selected, model.SelectedInterpretation{
				DecisionPointID: dp.DecisionPointID,
				Option:          dp.DefaultOption,
			})
		}
	}
	if _, ok := SelectedOption(selected, DPAccessoryCoverage); !ok {
		selected = append(selected, model.SelectedInterpretation{
			DecisionPointID: DPAccessoryCoverage,
			Option:          OptionIncludedIfDeclared,
		})
	}

	return resolved, selected
}
