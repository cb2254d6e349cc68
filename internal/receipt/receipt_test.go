package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
)

func evaluatedRun() *model.DecisionRun {
	claim := model.Claim{
		ClaimID: "CLM-CH-001",
		LineItems: []model.LineItem{
			{ItemID: "LI-001", Label: "Bumper Repair", Amount: 2500, Category: model.CategoryRepair},
			{ItemID: "LI-002", Label: "Tow Bar | Hitch", Amount: 1200, Category: model.CategoryAccessory},
		},
	}
	resolved := []model.ResolvedAssumption{{FactID: engine.FactAccessoryDeclared, ChosenResolution: engine.ResolutionNotDeclared, ChosenByRole: model.RoleAdjuster}}
	selected := []model.SelectedInterpretation{{DecisionPointID: engine.DPAccessoryCoverage, Option: engine.OptionIncludedIfDeclared}}

	outcome, trace := engine.NewEngine().Evaluate(claim, engine.Catalogs{}, resolved, selected)
	return &model.DecisionRun{
		RunID:                    "RUN-ABCDEF12",
		ClaimID:                  claim.ClaimID,
		Timestamp:                time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		InterpretationSetID:      "INT-CH-MOTOR-2025.1",
		InterpretationSetVersion: "2025.1",
		AssumptionSetID:          "ASM-CH-MOTOR-2025.1",
		AssumptionSetVersion:     "2025.1",
		ResolvedAssumptions:      resolved,
		SelectedInterpretations:  selected,
		Outcome:                  outcome,
		TraceSteps:               trace,
		GeneratedByRole:          model.RoleAdjuster,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(evaluatedRun(), nil)

	for _, want := range []string{
		"# Decision Receipt RUN-ABCDEF12",
		"**Approved**: CHF 2000.00 payable",
		"| LI-001 | Bumper Repair | 2500.00 |",
		`Tow Bar \| Hitch`,
		"| | Deductible | -500.00 | |",
		"| STEP-7 |",
		"Assumption `FACT.ACCESSORY_DECLARED` = `NOT_DECLARED`",
		"`INT-CH-MOTOR-2025.1` (2025.1)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Counterfactual") {
		t.Error("did not expect a counterfactual section")
	}
}

func TestMarkdown_Counterfactual(t *testing.T) {
	cf := &model.CounterfactualResult{
		ChangeType:    model.ChangeAssumption,
		ChangeRef:     engine.FactAccessoryDeclared,
		OriginalValue: engine.ResolutionNotDeclared,
		NewValue:      engine.ResolutionDeclared,
		NewOutcome:    model.DecisionOutcome{Status: model.StatusApproved, PayoutTotal: 3200},
		Delta:         1200,
		TraceDiff:     model.TraceDivergence{Summary: "Changed at STEP-5"},
	}

	md := Markdown(evaluatedRun(), cf)
	if !strings.Contains(md, "- Delta: +CHF 1200.00") {
		t.Errorf("expected signed delta, got\n%s", md)
	}
	if !strings.Contains(md, "from `NOT_DECLARED` to `DECLARED`") {
		t.Errorf("expected change line, got\n%s", md)
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, evaluatedRun(), nil, FormatJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var got Receipt
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.GrossPayout != 2500 {
		t.Errorf("expected gross 2500, got %.2f", got.GrossPayout)
	}
	if got.Versions.AssumptionSetVersion != "2025.1" {
		t.Errorf("expected assumption version 2025.1, got %s", got.Versions.AssumptionSetVersion)
	}
	if len(got.Trace) != engine.PhaseCount {
		t.Errorf("expected %d trace steps, got %d", engine.PhaseCount, len(got.Trace))
	}
	if strings.Contains(buf.String(), `"counterfactual"`) {
		t.Error("expected counterfactual to be omitted")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"json", FormatJSON},
		{"MD", FormatMarkdown},
		{"markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q): expected %s, got %s (%v)", tt.in, tt.want, got, err)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
