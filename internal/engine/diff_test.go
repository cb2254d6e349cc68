package engine

import (
	"testing"

	"github.com/ppiankov/decision-ledger/internal/model"
)

func TestDiff_IdenticalTraces(t *testing.T) {
	_, trace := NewEngine().Evaluate(towBarClaim(), Catalogs{}, assume(ResolutionNotDeclared), nil)

	div := Diff(trace, trace)
	if div.Diverged {
		t.Error("expected no divergence")
	}
	if div.Summary != NoDifferenceSummary {
		t.Errorf("expected sentinel summary, got %q", div.Summary)
	}
	if div.ChangedStepID != "STEP-7" || div.ChangedStepNumber != 7 {
		t.Errorf("expected sentinel anchored on STEP-7/7, got %s/%d", div.ChangedStepID, div.ChangedStepNumber)
	}
}

func TestDiff_AccessoryChangeLocatedAtStepFive(t *testing.T) {
	e := NewEngine()
	_, base := e.Evaluate(towBarClaim(), Catalogs{}, assume(ResolutionNotDeclared), interpret(OptionIncludedIfDeclared))
	_, changed := e.Evaluate(towBarClaim(), Catalogs{}, assume(ResolutionDeclared), interpret(OptionIncludedIfDeclared))

	div := Diff(base, changed)
	if !div.Diverged {
		t.Fatal("expected divergence")
	}
	if div.ChangedStepNumber != 5 || div.ChangedStepID != "STEP-5" {
		t.Errorf("expected STEP-5, got %s/%d", div.ChangedStepID, div.ChangedStepNumber)
	}
	if div.OriginalOutput != "Accessory covered: No (CHF 0.00)" {
		t.Errorf("unexpected original output: %s", div.OriginalOutput)
	}
	if div.NewOutput != "Accessory covered: Yes (CHF 1200.00)" {
		t.Errorf("unexpected new output: %s", div.NewOutput)
	}
	if div.Summary != "Step 5 (Evaluate Accessory Coverage) produced different output" {
		t.Errorf("unexpected summary: %s", div.Summary)
	}
}

func TestDiff_FirstDifferenceAtK(t *testing.T) {
	_, base := NewEngine().Evaluate(towBarClaim(), Catalogs{}, nil, nil)

	for k := 1; k <= PhaseCount; k++ {
		other := make([]model.TraceStep, len(base))
		copy(other, base)
		other[k-1].Output = "changed"

		div := Diff(base, other)
		if div.ChangedStepNumber != k {
			t.Errorf("expected divergence at %d, got %d", k, div.ChangedStepNumber)
		}
	}
}

func TestDiff_EdgeCases(t *testing.T) {
	_, trace := NewEngine().Evaluate(towBarClaim(), Catalogs{}, nil, nil)

	tests := []struct {
		name       string
		a, b       []model.TraceStep
		wantID     string
		wantNumber int
		wantNew    string
	}{
		{"both empty", nil, nil, "STEP-0", 0, ""},
		{"second empty", trace, nil, "STEP-0", 0, ""},
		{"first empty", nil, trace, "STEP-7", 7, trace[6].Output},
		// Trailing steps past the shorter trace are not compared
		{"longer second trace", trace[:3], trace, "STEP-7", 7, trace[6].Output},
		{"longer first trace", trace, trace[:3], "STEP-3", 3, trace[2].Output},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			div := Diff(tt.a, tt.b)
			if div.Diverged {
				t.Error("expected no divergence")
			}
			if div.ChangedStepID != tt.wantID {
				t.Errorf("expected id %s, got %s", tt.wantID, div.ChangedStepID)
			}
			if div.ChangedStepNumber != tt.wantNumber {
				t.Errorf("expected number %d, got %d", tt.wantNumber, div.ChangedStepNumber)
			}
			if div.NewOutput != tt.wantNew {
				t.Errorf("expected new output %q, got %q", tt.wantNew, div.NewOutput)
			}
		})
	}
}
