// Package decision runs claims through the engine and records every run in
// the ledger.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/counterfactual"
	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/ledger"
	"github.com/ppiankov/decision-ledger/internal/metrics"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/validate"
)

// RunResult is a stored run plus the non-fatal findings of its request
type RunResult struct {
	*model.DecisionRun
	Warnings []model.Issue `json:"warnings,omitempty"`
}

// Service executes decisions and counterfactuals
type Service struct {
	lookup       catalog.Lookup
	runs         ledger.Registry
	engine       *engine.Engine
	orchestrator *counterfactual.Orchestrator
	validator    *validate.Validator
	metrics      *metrics.Collector
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a service. collector may be nil.
func NewService(lookup catalog.Lookup, runs ledger.Registry, collector *metrics.Collector) *Service {
	eng := engine.NewEngine()
	return &Service{
		lookup:       lookup,
		runs:         runs,
		engine:       eng,
		orchestrator: counterfactual.NewOrchestrator(runs, lookup, eng),
		validator:    validate.NewValidator(),
		metrics:      collector,
		logger:       slog.Default().With("component", "decision"),
		now:          time.Now,
	}
}

// Run evaluates the requested claim and appends the run to the ledger.
//
// Unknown claims are *model.NotFoundError; malformed requests are
// *model.ValidationError. Catalog IDs that do not resolve are recorded with
// version "unknown" and the engine defaults apply.
func (s *Service) Run(ctx context.Context, req model.DecisionRunRequest) (*RunResult, error) {
	start := time.Now()

	if err := s.validator.Struct(req).Err(); err != nil {
		return nil, err
	}
	if role, ok := s.validator.Gate().ParseRole(string(req.Role)); ok {
		req.Role = role
	}

	claim, err := s.lookup.Claim(req.ClaimID)
	if err != nil {
		return nil, err
	}

	catalogs, err := counterfactual.ResolveCatalogs(s.lookup, req.InterpretationSetID, req.AssumptionSetID)
	if err != nil {
		return nil, err
	}

	report := s.validator.Request(req, *claim, catalogs)
	if err := report.Err(); err != nil {
		s.logger.Info("decision request rejected", "claim_id", req.ClaimID, "errors", len(report.Errors))
		return nil, err
	}
	s.metrics.RecordWarnings(len(report.Warnings))

	resolved := model.CloneResolved(req.ResolvedAssumptions)
	if resolved == nil {
		resolved = []model.ResolvedAssumption{}
	}
	selected := model.CloneSelected(req.SelectedInterpretations)
	if selected == nil {
		selected = []model.SelectedInterpretation{}
	}

	outcome, trace := s.engine.Evaluate(*claim, catalogs, resolved, selected)

	run := &model.DecisionRun{
		RunID:                    ledger.NewRunID(),
		ClaimID:                  claim.ClaimID,
		Timestamp:                s.now().UTC(),
		InterpretationSetID:      req.InterpretationSetID,
		InterpretationSetVersion: model.UnknownVersion,
		AssumptionSetID:          req.AssumptionSetID,
		AssumptionSetVersion:     model.UnknownVersion,
		ResolvedAssumptions:      resolved,
		SelectedInterpretations:  selected,
		Outcome:                  outcome,
		TraceSteps:               trace,
		GeneratedByRole:          req.Role,
	}
	if catalogs.Interpretations != nil {
		run.InterpretationSetVersion = catalogs.Interpretations.Version
	}
	if catalogs.Assumptions != nil {
		run.AssumptionSetVersion = catalogs.Assumptions.Version
	}

	if err := s.runs.Store(ctx, run); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}

	s.metrics.RecordRunStored(s.runs.Backend())
	s.metrics.RecordEvaluation(string(outcome.Status), time.Since(start))
	s.logger.Info("decision run stored",
		"run_id", run.RunID,
		"claim_id", run.ClaimID,
		"status", outcome.Status,
		"payout_total", outcome.PayoutTotal,
		"warnings", len(report.Warnings),
	)

	return &RunResult{DecisionRun: run, Warnings: report.Warnings}, nil
}

// Get returns a stored run
func (s *Service) Get(ctx context.Context, runID string) (*model.DecisionRun, error) {
	return s.runs.Get(ctx, runID)
}

// List returns stored runs for claimID (all runs when empty), newest first
func (s *Service) List(ctx context.Context, claimID string, limit int) ([]*model.DecisionRun, error) {
	return s.runs.List(ctx, model.RunQuery{ClaimID: claimID, Limit: limit})
}

// Counterfactual replays a stored run with one input changed. The result is
// not stored.
func (s *Service) Counterfactual(ctx context.Context, req model.CounterfactualRequest) (*model.CounterfactualResult, error) {
	if err := s.validator.Struct(req).Err(); err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCounterfactual(string(req.ChangeType), result.Delta != 0)
	return result, nil
}

// Diff compares the traces of two stored runs
func (s *Service) Diff(ctx context.Context, runA, runB string) (model.TraceDivergence, error) {
	a, err := s.runs.Get(ctx, runA)
	if err != nil {
		return model.TraceDivergence{}, err
	}
	b, err := s.runs.Get(ctx, runB)
	if err != nil {
		return model.TraceDivergence{}, err
	}
	return engine.Diff(a.TraceSteps, b.TraceSteps), nil
}

// Defaults returns the baseline inputs for a claim under the named catalogs
func (s *Service) Defaults(claimID, interpretationSetID, assumptionSetID string) ([]model.ResolvedAssumption, []model.SelectedInterpretation, error) {
	claim, err := s.lookup.Claim(claimID)
	if err != nil {
		return nil, nil, err
	}
	catalogs, err := counterfactual.ResolveCatalogs(s.lookup, interpretationSetID, assumptionSetID)
	if err != nil {
		return nil, nil, err
	}
	resolved, selected := engine.DefaultInputs(*claim, catalogs)
	return resolved, selected, nil
}
