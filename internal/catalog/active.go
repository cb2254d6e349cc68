package catalog

import "github.com/ppiankov/decision-ledger/internal/model"

// ActiveSets returns the IDs of the first Approved interpretation and
// assumption sets scoped to the claim. Either ID is empty when no approved
// set exists; the engine then falls back to its built-in defaults.
func ActiveSets(lookup Lookup, claim model.Claim) (interpretationSetID, assumptionSetID string, err error) {
	filter := model.CatalogFilter{Jurisdiction: claim.Jurisdiction, ProductLine: claim.ProductLine}

	isets, err := lookup.InterpretationSets(filter)
	if err != nil {
		return "", "", err
	}
	for _, s := range isets {
		if s.Status == model.CatalogApproved {
			interpretationSetID = s.InterpretationSetID
			break
		}
	}

	asets, err := lookup.AssumptionSets(filter)
	if err != nil {
		return "", "", err
	}
	for _, s := range asets {
		if s.Status == model.CatalogApproved {
			assumptionSetID = s.AssumptionSetID
			break
		}
	}

	return interpretationSetID, assumptionSetID, nil
}
