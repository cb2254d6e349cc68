package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/ledger"
	"github.com/ppiankov/decision-ledger/internal/metrics"
	"github.com/ppiankov/decision-ledger/internal/model"
)

const fixturesDir = "../../data/fixtures"

func newTestService(t *testing.T) (*Service, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector(prometheus.NewRegistry())
	svc := NewService(catalog.NewFileStore(fixturesDir, 0), ledger.NewMemoryRegistry(), collector)
	return svc, collector
}

func scenarioRequest(resolution, option string) model.DecisionRunRequest {
	return model.DecisionRunRequest{
		ClaimID:             "CLM-CH-001",
		InterpretationSetID: "INT-CH-MOTOR-2025.1",
		AssumptionSetID:     "ASM-CH-MOTOR-2025.1",
		ResolvedAssumptions: []model.ResolvedAssumption{{
			AssumptionID:     "ASM.ACCESSORY_DECLARED",
			FactID:           engine.FactAccessoryDeclared,
			ChosenResolution: resolution,
			ChosenByRole:     model.RoleSupervisor,
		}},
		SelectedInterpretations: []model.SelectedInterpretation{{
			DecisionPointID: engine.DPAccessoryCoverage,
			Option:          option,
		}},
		Role: model.RoleSupervisor,
	}
}

func TestRun_Scenarios(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		resolution string
		option     string
		payout     float64
		status     model.DecisionStatus
	}{
		{"not declared", engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared, 2000, model.StatusApproved},
		{"declared", engine.ResolutionDeclared, engine.OptionIncludedIfDeclared, 3200, model.StatusApproved},
		{"excluded", engine.ResolutionDeclared, engine.OptionExcluded, 2000, model.StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Run(ctx, scenarioRequest(tt.resolution, tt.option))
			require.NoError(t, err)

			assert.Equal(t, tt.payout, result.Outcome.PayoutTotal)
			assert.Equal(t, tt.status, result.Outcome.Status)
			assert.Equal(t, 500.0, result.Outcome.DeductibleApplied)
			assert.Len(t, result.TraceSteps, engine.PhaseCount)
			assert.Equal(t, "2025.1", result.InterpretationSetVersion)
			assert.Equal(t, "2025.1", result.AssumptionSetVersion)
			assert.Regexp(t, `^RUN-[0-9A-F]{8}$`, result.RunID)
			assert.Empty(t, result.Warnings)
		})
	}
}

// counterValue sums every series of a counter family
func counterValue(t *testing.T, collector *metrics.Collector, name string) float64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestRun_StoresRun(t *testing.T) {
	svc, collector := newTestService(t)
	ctx := context.Background()

	result, err := svc.Run(ctx, scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)

	stored, err := svc.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Outcome, stored.Outcome)
	assert.Equal(t, model.RoleSupervisor, stored.GeneratedByRole)

	assert.Equal(t, 1.0, counterValue(t, collector, "decision_ledger_runs_stored_total"))
	assert.Equal(t, 1.0, counterValue(t, collector, "decision_ledger_evaluations_total"))
}

func TestRun_NormalisesRole(t *testing.T) {
	svc, _ := newTestService(t)

	req := scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared)
	req.Role = "qa_lead"

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleQALead, result.GeneratedByRole)
}

func TestRun_UnknownCatalogs(t *testing.T) {
	svc, _ := newTestService(t)

	req := scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared)
	req.InterpretationSetID = "INT-GONE"
	req.AssumptionSetID = ""

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.UnknownVersion, result.InterpretationSetVersion)
	assert.Equal(t, model.UnknownVersion, result.AssumptionSetVersion)
	assert.Equal(t, "INT-GONE", result.InterpretationSetID)
	assert.Equal(t, 2000.0, result.Outcome.PayoutTotal)
}

func TestRun_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared)
	req.ClaimID = "CLM-MISSING"
	_, err := svc.Run(ctx, req)
	assert.True(t, errors.Is(err, model.ErrNotFound), "expected NotFound, got %v", err)

	req = scenarioRequest("MAYBE", engine.OptionIncludedIfDeclared)
	_, err = svc.Run(ctx, req)
	assert.True(t, errors.Is(err, model.ErrValidation), "expected validation error, got %v", err)

	req = scenarioRequest(engine.ResolutionNotDeclared, "SOMETIMES")
	_, err = svc.Run(ctx, req)
	assert.True(t, errors.Is(err, model.ErrValidation), "expected validation error, got %v", err)

	req = scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared)
	req.Role = ""
	_, err = svc.Run(ctx, req)
	assert.True(t, errors.Is(err, model.ErrValidation), "expected validation error, got %v", err)

	runs, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "rejected requests must not be stored")
}

func TestRun_Warnings(t *testing.T) {
	svc, collector := newTestService(t)

	req := scenarioRequest(engine.ResolutionDeclared, engine.OptionIncludedIfDeclared)
	req.ResolvedAssumptions[0].ChosenByRole = model.RoleAdjuster // not allowed to choose DECLARED
	req.SelectedInterpretations = append(req.SelectedInterpretations, model.SelectedInterpretation{
		DecisionPointID: engine.DPAccessoryCoverage,
		Option:          engine.OptionExcluded,
	})

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 3200.0, result.Outcome.PayoutTotal, "first selection wins")
	assert.Equal(t, 2.0, counterValue(t, collector, "decision_ledger_validation_warnings_total"))
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := svc.Run(ctx, scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)
	second, err := svc.Run(ctx, scenarioRequest(engine.ResolutionDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)

	runs, err := svc.List(ctx, "CLM-CH-001", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)

	runs, err = svc.List(ctx, "CLM-CH-002", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCounterfactual(t *testing.T) {
	svc, collector := newTestService(t)
	ctx := context.Background()

	base, err := svc.Run(ctx, scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)

	result, err := svc.Counterfactual(ctx, model.CounterfactualRequest{
		BaseRunID:     base.RunID,
		ChangeType:    model.ChangeAssumption,
		ChangeRef:     engine.FactAccessoryDeclared,
		OriginalValue: engine.ResolutionNotDeclared,
		NewValue:      engine.ResolutionDeclared,
	})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, result.Delta)
	assert.Equal(t, 5, result.TraceDiff.ChangedStepNumber)
	assert.Equal(t, 1.0, counterValue(t, collector, "decision_ledger_counterfactuals_total"))

	runs, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "counterfactuals are not stored")

	_, err = svc.Counterfactual(ctx, model.CounterfactualRequest{
		BaseRunID:  "RUN-MISSING",
		ChangeType: model.ChangeAssumption,
		ChangeRef:  engine.FactAccessoryDeclared,
		NewValue:   engine.ResolutionDeclared,
	})
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = svc.Counterfactual(ctx, model.CounterfactualRequest{BaseRunID: base.RunID, ChangeType: "OTHER"})
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestDiff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Run(ctx, scenarioRequest(engine.ResolutionNotDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)
	b, err := svc.Run(ctx, scenarioRequest(engine.ResolutionDeclared, engine.OptionIncludedIfDeclared))
	require.NoError(t, err)

	div, err := svc.Diff(ctx, a.RunID, b.RunID)
	require.NoError(t, err)
	assert.True(t, div.Diverged)
	assert.Equal(t, "STEP-5", div.ChangedStepID, "the accessory step is the first to differ")

	same, err := svc.Diff(ctx, a.RunID, a.RunID)
	require.NoError(t, err)
	assert.False(t, same.Diverged)
	assert.Equal(t, engine.NoDifferenceSummary, same.Summary)

	_, err = svc.Diff(ctx, a.RunID, "RUN-MISSING")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	resolved, selected, err := svc.Defaults("CLM-CH-001", "INT-CH-MOTOR-2025.1", "ASM-CH-MOTOR-2025.1")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, engine.ResolutionNotDeclared, resolved[0].ChosenResolution)
	require.Len(t, selected, 1)
	assert.Equal(t, engine.OptionIncludedIfDeclared, selected[0].Option)

	_, _, err = svc.Defaults("CLM-MISSING", "", "")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
