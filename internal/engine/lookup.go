package engine

import "github.com/ppiankov/decision-ledger/internal/model"

// SelectedOption returns the option of the first selection for dpID
func SelectedOption(selected []model.SelectedInterpretation, dpID string) (string, bool) {
	for _, si := range selected {
		if si.DecisionPointID == dpID {
			return si.Option, true
		}
	}
	return "", false
}

// ResolvedValue returns the resolution of the first entry for factID
func ResolvedValue(resolved []model.ResolvedAssumption, factID string) (string, bool) {
	for _, ra := range resolved {
		if ra.FactID == factID {
			return ra.ChosenResolution, true
		}
	}
	return "", false
}

// DuplicateFactIDs lists fact IDs resolved more than once, in first-seen order.
// Only the first entry for each is honoured by ResolvedValue.
func DuplicateFactIDs(resolved []model.ResolvedAssumption) []string {
	keys := make([]string, len(resolved))
	for i, ra := range resolved {
		keys[i] = ra.FactID
	}
	return duplicates(keys)
}

// DuplicateDecisionPoints lists decision points selected more than once
func DuplicateDecisionPoints(selected []model.SelectedInterpretation) []string {
	keys := make([]string, len(selected))
	for i, si := range selected {
		keys[i] = si.DecisionPointID
	}
	return duplicates(keys)
}

func duplicates(keys []string) []string {
	seen := make(map[string]int, len(keys))
	var dups []string
	for _, k := range keys {
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}
