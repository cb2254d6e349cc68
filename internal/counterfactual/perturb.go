package counterfactual

import (
	"fmt"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// Change is a single-field edit of a run's inputs
type Change struct {
	Kind  model.ChangeKind
	Ref   string
	Value string
}

// Inputs is the pair of user choices the engine consumes
type Inputs struct {
	Resolved []model.ResolvedAssumption
	Selected []model.SelectedInterpretation
}

// Perturb returns copies of the run's inputs with the first entry matching
// the change replaced. The run itself is never modified. If no entry matches
// the copies are returned unchanged and previous is empty.
func Perturb(run *model.DecisionRun, change Change) (in Inputs, previous string, err error) {
	in = Inputs{
		Resolved: model.CloneResolved(run.ResolvedAssumptions),
		Selected: model.CloneSelected(run.SelectedInterpretations),
	}
	previous, _, err = apply(&in, change, false)
	return in, previous, err
}

// Apply edits in place, appending a new entry when nothing matches. It
// reports whether an existing entry was replaced.
func Apply(in *Inputs, change Change) (replaced bool, err error) {
	_, replaced, err = apply(in, change, true)
	return replaced, err
}

func apply(in *Inputs, change Change, appendMissing bool) (previous string, replaced bool, err error) {
	switch change.Kind {
	case model.ChangeAssumption:
		// The reference names the fact; assumption IDs are accepted too
		for i := range in.Resolved {
			ra := &in.Resolved[i]
			if ra.FactID == change.Ref || (ra.AssumptionID != "" && ra.AssumptionID == change.Ref) {
				previous = ra.ChosenResolution
				ra.ChosenResolution = change.Value
				return previous, true, nil
			}
		}
		if appendMissing {
			in.Resolved = append(in.Resolved, model.ResolvedAssumption{
				FactID:           change.Ref,
				ChosenResolution: change.Value,
			})
		}
		return "", false, nil

	case model.ChangeInterpretation:
		for i := range in.Selected {
			si := &in.Selected[i]
			if si.DecisionPointID == change.Ref {
				previous = si.Option
				si.Option = change.Value
				return previous, true, nil
			}
		}
		if appendMissing {
			in.Selected = append(in.Selected, model.SelectedInterpretation{
				DecisionPointID: change.Ref,
				Option:          change.Value,
			})
		}
		return "", false, nil

	default:
		return "", false, &model.ValidationError{Issues: []model.Issue{{
			Field:   "change_type",
			Message: fmt.Sprintf("unknown change type %q (expected ASSUMPTION or INTERPRETATION)", change.Kind),
		}}}
	}
}
