// Package qa simulates a proposed change across a cohort of claims and
// summarises the payout impact.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/counterfactual"
	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/metrics"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/worker"
)

// Study thresholds
const (
	HighImpactThreshold = 10000.0
	MinCohortSize       = 5
	TopImpacted         = 5
)

// Options selects the catalogs baselines are evaluated under
type Options struct {
	InterpretationSetID string
	AssumptionSetID     string
	Concurrency         int
}

// Runner evaluates impact studies
type Runner struct {
	lookup  catalog.Lookup
	engine  *engine.Engine
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewRunner creates a runner. collector may be nil.
func NewRunner(lookup catalog.Lookup, collector *metrics.Collector) *Runner {
	return &Runner{
		lookup:  lookup,
		engine:  engine.NewEngine(),
		metrics: collector,
		logger:  slog.Default().With("component", "qa"),
	}
}

// claimEvaluator computes baseline-versus-changed deltas for one study
type claimEvaluator struct {
	runner   *Runner
	catalogs engine.Catalogs
	change   counterfactual.Change
}

// EvaluateClaim returns the payout delta the change causes for claimID
func (e *claimEvaluator) EvaluateClaim(ctx context.Context, claimID string) (float64, error) {
	claim, err := e.runner.lookup.Claim(claimID)
	if err != nil {
		return 0, err
	}

	resolved, selected := engine.DefaultInputs(*claim, e.catalogs)
	baseline, _ := e.runner.engine.Evaluate(*claim, e.catalogs, resolved, selected)

	changed := counterfactual.Inputs{
		Resolved: model.CloneResolved(resolved),
		Selected: model.CloneSelected(selected),
	}
	if _, err := counterfactual.Apply(&changed, e.change); err != nil {
		return 0, err
	}
	outcome, _ := e.runner.engine.Evaluate(*claim, e.catalogs, changed.Resolved, changed.Selected)

	return outcome.PayoutTotal - baseline.PayoutTotal, nil
}

// Study applies proposal proposalID to every claim of cohort cohortID.
// Claims that cannot be evaluated are listed in Errors and flag the study
// LOW_CONFIDENCE; they do not fail it.
func (r *Runner) Study(ctx context.Context, cohortID, proposalID string, opts Options) (*model.QAStudyResult, error) {
	cohort, err := r.lookup.Cohort(cohortID)
	if err != nil {
		return nil, err
	}
	proposal, err := r.lookup.ProposedChange(proposalID)
	if err != nil {
		return nil, err
	}

	catalogs, err := counterfactual.ResolveCatalogs(r.lookup, opts.InterpretationSetID, opts.AssumptionSetID)
	if err != nil {
		return nil, err
	}

	evaluator := &claimEvaluator{
		runner:   r,
		catalogs: catalogs,
		change: counterfactual.Change{
			Kind:  proposal.ChangeType,
			Ref:   proposal.ChangeRef,
			Value: proposal.NewValue,
		},
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	results := worker.NewBatchProcessor(evaluator, concurrency).ProcessClaims(ctx, cohort.ClaimIDs)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("study cancelled: %w", err)
	}

	study := Summarize(cohort, proposal, results)

	r.metrics.RecordStudy(cohort.CohortID)
	r.logger.Info("qa study completed",
		"cohort_id", cohort.CohortID,
		"proposal_id", proposal.ProposalID,
		"evaluated", study.EvaluatedClaims,
		"impacted", study.ImpactedClaimsCount,
		"total_delta", study.TotalDeltaPayout,
		"flags", study.Flags,
	)
	return study, nil
}

// Summarize folds per-claim results into a study result
func Summarize(cohort *model.QACohort, proposal *model.QAProposedChange, results []*worker.StudyResult) *model.QAStudyResult {
	study := &model.QAStudyResult{
		CohortID:          cohort.CohortID,
		CohortLabel:       cohort.Label,
		ProposalID:        proposal.ProposalID,
		ProposalLabel:     proposal.Label,
		TopImpactedClaims: []model.ImpactedClaim{},
		Flags:             []model.QAFlag{},
	}

	var impacted []model.ImpactedClaim
	var increases, decreases bool
	for _, res := range results {
		if res.Error != nil {
			study.Errors = append(study.Errors, res.Error.Error())
			continue
		}
		study.EvaluatedClaims++
		if res.Delta == 0 {
			continue
		}
		impacted = append(impacted, model.ImpactedClaim{ClaimID: res.ClaimID, Delta: res.Delta})
		study.TotalDeltaPayout += res.Delta
		if res.Delta > 0 {
			increases = true
		} else {
			decreases = true
		}
	}
	study.ImpactedClaimsCount = len(impacted)

	sort.SliceStable(impacted, func(i, j int) bool {
		return math.Abs(impacted[i].Delta) > math.Abs(impacted[j].Delta)
	})
	if len(impacted) > TopImpacted {
		impacted = impacted[:TopImpacted]
	}
	study.TopImpactedClaims = append(study.TopImpactedClaims, impacted...)

	if math.Abs(study.TotalDeltaPayout) >= HighImpactThreshold {
		study.Flags = append(study.Flags, model.FlagHighImpact)
	}
	if increases && decreases {
		study.Flags = append(study.Flags, model.FlagInconsistencyDetected)
	}
	if study.EvaluatedClaims < MinCohortSize || len(study.Errors) > 0 {
		study.Flags = append(study.Flags, model.FlagLowConfidence)
	}

	return study
}
