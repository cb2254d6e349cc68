package engine

import (
	"fmt"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// NoDifferenceSummary is the summary of a diff that found no divergence
const NoDifferenceSummary = "No significant differences in trace steps"

// Diff walks two traces in lockstep and reports the first step whose output
// differs, using the step identity of the second trace.
//
// Only the common prefix is compared. Steps past the shorter length are not
// inspected, so traces that differ only in trailing steps report no difference.
// When nothing differs the result is anchored on the last step of b, or on
// STEP-0 when b is empty.
func Diff(a, b []model.TraceStep) model.TraceDivergence {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i].Output != b[i].Output {
			return model.TraceDivergence{
				ChangedStepID:     b[i].StepID,
				ChangedStepNumber: b[i].StepNumber,
				OriginalOutput:    a[i].Output,
				NewOutput:         b[i].Output,
				Summary:           fmt.Sprintf("Step %d (%s) produced different output", b[i].StepNumber, b[i].Label),
				Diverged:          true,
			}
		}
	}

	div := model.TraceDivergence{
		ChangedStepID:     "STEP-0",
		ChangedStepNumber: len(b),
		Summary:           NoDifferenceSummary,
	}
	if len(b) > 0 {
		div.ChangedStepID = b[len(b)-1].StepID
		div.NewOutput = b[len(b)-1].Output
	}
	if len(a) > 0 {
		div.OriginalOutput = a[len(a)-1].Output
	}
	return div
}
