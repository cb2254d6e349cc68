package llm

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// CHF 1200, CHF 1'200.00, CHF -650.5, CHF 3,700
var figurePattern = regexp.MustCompile(`CHF\s?(-?[0-9][0-9',]*(?:\.[0-9]+)?)`)

// AllowedFigures lists every amount the run and counterfactual produced,
// formatted as "CHF 0.00"
func AllowedFigures(run *model.DecisionRun, cf *model.CounterfactualResult) []string {
	set := make(map[string]bool)
	add := func(v float64) { set[engine.FormatMoney(v)] = true }

	collectOutcome := func(o model.DecisionOutcome, trace []model.TraceStep) {
		add(o.PayoutTotal)
		add(o.DeductibleApplied)
		add(o.GrossPayout())
		for _, item := range o.PayoutBreakdown {
			add(item.CoveredAmount)
		}
		for _, step := range trace {
			for _, f := range extractFigures(step.Output) {
				set[f] = true
			}
			if step.OutputValue != nil {
				if v, err := strconv.ParseFloat(*step.OutputValue, 64); err == nil {
					add(v)
				}
			}
		}
	}

	if run != nil {
		collectOutcome(run.Outcome, run.TraceSteps)
	}
	if cf != nil {
		collectOutcome(cf.NewOutcome, cf.NewTrace)
		add(cf.Delta)
		add(math.Abs(cf.Delta))
	}

	figures := make([]string, 0, len(set))
	for f := range set {
		figures = append(figures, f)
	}
	sort.Strings(figures)
	return figures
}

// extractFigures finds CHF amounts in text and normalises them
func extractFigures(text string) []string {
	seen := make(map[string]bool)
	var figures []string
	for _, m := range figurePattern.FindAllStringSubmatch(text, -1) {
		raw := strings.NewReplacer("'", "", ",", "").Replace(m[1])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		f := engine.FormatMoney(v)
		if !seen[f] {
			seen[f] = true
			figures = append(figures, f)
		}
	}
	return figures
}

// checkFigures returns a *FigureLeakError for the first quoted amount
// that is not allowed
func checkFigures(figures, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for _, f := range figures {
		if !ok[f] {
			return &FigureLeakError{Figure: f}
		}
	}
	return nil
}
