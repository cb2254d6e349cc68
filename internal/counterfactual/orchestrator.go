// Package counterfactual replays a stored decision run with one input changed
// and reports how the outcome and trace moved. Nothing it computes is stored.
package counterfactual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/ledger"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Orchestrator runs counterfactuals against the run registry
type Orchestrator struct {
	runs    ledger.Registry
	catalog catalog.Lookup
	engine  *engine.Engine
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(runs ledger.Registry, lookup catalog.Lookup, eng *engine.Engine) *Orchestrator {
	if eng == nil {
		eng = engine.NewEngine()
	}
	return &Orchestrator{
		runs:    runs,
		catalog: lookup,
		engine:  eng,
		logger:  slog.Default().With("component", "counterfactual"),
	}
}

// Run replays req.BaseRunID with the requested change applied.
//
// A missing base run or claim is a *model.NotFoundError. Catalogs that no
// longer resolve fall back to the engine defaults. A reference that matches
// no input leaves the inputs as they were, giving a zero delta.
func (o *Orchestrator) Run(ctx context.Context, req model.CounterfactualRequest) (*model.CounterfactualResult, error) {
	base, err := o.runs.Get(ctx, req.BaseRunID)
	if err != nil {
		return nil, err
	}

	claim, err := o.catalog.Claim(base.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("claim for run %s: %w", base.RunID, err)
	}

	catalogs, err := ResolveCatalogs(o.catalog, base.InterpretationSetID, base.AssumptionSetID)
	if err != nil {
		return nil, err
	}

	inputs, previous, err := Perturb(base, Change{
		Kind:  req.ChangeType,
		Ref:   req.ChangeRef,
		Value: req.NewValue,
	})
	if err != nil {
		return nil, err
	}

	outcome, trace := o.engine.Evaluate(*claim, catalogs, inputs.Resolved, inputs.Selected)

	original := req.OriginalValue
	if original == "" {
		original = previous
	}

	result := &model.CounterfactualResult{
		BaseRunID:     base.RunID,
		ChangeType:    req.ChangeType,
		ChangeRef:     req.ChangeRef,
		OriginalValue: original,
		NewValue:      req.NewValue,
		NewOutcome:    outcome,
		NewTrace:      trace,
		Delta:         outcome.PayoutTotal - base.Outcome.PayoutTotal,
		TraceDiff:     engine.Diff(base.TraceSteps, trace),
	}

	o.logger.Debug("counterfactual evaluated",
		"base_run_id", base.RunID,
		"change_type", req.ChangeType,
		"change_ref", req.ChangeRef,
		"matched", previous != "",
		"delta", result.Delta,
		"changed_step", result.TraceDiff.ChangedStepID,
	)

	return result, nil
}

// ResolveCatalogs loads the catalogs named by a run or request. Empty or
// unknown IDs give a nil set; only storage failures are returned.
func ResolveCatalogs(lookup catalog.Lookup, interpretationSetID, assumptionSetID string) (engine.Catalogs, error) {
	var catalogs engine.Catalogs

	if interpretationSetID != "" {
		set, err := lookup.InterpretationSet(interpretationSetID)
		switch {
		case err == nil:
			catalogs.Interpretations = set
		case !errors.Is(err, model.ErrNotFound):
			return catalogs, fmt.Errorf("load interpretation set: %w", err)
		}
	}

	if assumptionSetID != "" {
		set, err := lookup.AssumptionSet(assumptionSetID)
		switch {
		case err == nil:
			catalogs.Assumptions = set
		case !errors.Is(err, model.ErrNotFound):
			return catalogs, fmt.Errorf("load assumption set: %w", err)
		}
	}

	return catalogs, nil
}
