package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/decision-ledger/internal/engine"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Report collects the findings of one validation pass.
// Errors reject the input; warnings are surfaced but do not block a run.
type Report struct {
	Errors   []model.Issue `json:"errors,omitempty"`
	Warnings []model.Issue `json:"warnings,omitempty"`
}

// OK reports whether the input may proceed
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns a *model.ValidationError when the report has errors
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	return &model.ValidationError{Issues: r.Errors}
}

func (r *Report) errorf(field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, model.Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(field, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, model.Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) merge(other Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Validator checks records before they reach the engine
type Validator struct {
	structs *validator.Validate
	gate    *RoleGate
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		structs: v,
		gate:    NewRoleGate(),
	}
}

// Gate exposes the role gate used for alternative checks
func (v *Validator) Gate() *RoleGate {
	return v.gate
}

// Struct runs tag based validation on any record
func (v *Validator) Struct(s interface{}) Report {
	var report Report
	err := v.structs.Struct(s)
	if err == nil {
		return report
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		report.errorf("", "%v", err)
		return report
	}
	for _, fe := range fieldErrs {
		report.errorf(trimNamespace(fe.Namespace()), "failed %q constraint", describeTag(fe))
	}
	return report
}

// Claim checks amounts and fact identity
func (v *Validator) Claim(c model.Claim) Report {
	report := v.Struct(c)

	for i, item := range c.LineItems {
		if item.Amount < 0 || math.IsNaN(item.Amount) || math.IsInf(item.Amount, 0) {
			report.errorf(fmt.Sprintf("line_items[%d].amount_chf", i),
				"amount %v for %s must be a non-negative number", item.Amount, item.ItemID)
		}
	}

	seen := make(map[string]bool, len(c.Facts))
	for i, f := range c.Facts {
		if seen[f.FactID] {
			report.errorf(fmt.Sprintf("facts[%d].fact_id", i), "duplicate fact id %s", f.FactID)
		}
		seen[f.FactID] = true
	}

	items := make(map[string]bool, len(c.LineItems))
	for i, item := range c.LineItems {
		if items[item.ItemID] {
			report.warnf(fmt.Sprintf("line_items[%d].item_id", i), "duplicate line item id %s", item.ItemID)
		}
		items[item.ItemID] = true
	}

	return report
}

// InterpretationSet checks every decision point's default option
func (v *Validator) InterpretationSet(s model.InterpretationSet) Report {
	report := v.Struct(s)

	points := make(map[string]bool, len(s.DecisionPoints))
	for i, dp := range s.DecisionPoints {
		field := fmt.Sprintf("decision_points[%d]", i)
		if points[dp.DecisionPointID] {
			report.warnf(field, "duplicate decision point %s, only the first is used", dp.DecisionPointID)
		}
		points[dp.DecisionPointID] = true

		options := make(map[string]bool, len(dp.Options))
		for _, o := range dp.Options {
			if options[o.OptionID] {
				report.errorf(field+".options", "duplicate option %s", o.OptionID)
			}
			options[o.OptionID] = true
		}
		if dp.DefaultOption != "" && !options[dp.DefaultOption] {
			report.errorf(field+".default_option", "default option %s is not one of the options of %s",
				dp.DefaultOption, dp.DecisionPointID)
		}
	}

	return report
}

// AssumptionSet checks recommended resolutions and role gates
func (v *Validator) AssumptionSet(s model.AssumptionSet) Report {
	report := v.Struct(s)

	triggers := make(map[string]string, len(s.Assumptions))
	for i, a := range s.Assumptions {
		field := fmt.Sprintf("assumptions[%d]", i)
		if prev, dup := triggers[a.TriggerFactID]; dup {
			report.warnf(field, "fact %s is already resolved by %s, only the first is used", a.TriggerFactID, prev)
		} else {
			triggers[a.TriggerFactID] = a.AssumptionID
		}

		if a.RecommendedResolution != "" {
			if _, ok := a.Alternative(a.RecommendedResolution); !ok {
				report.errorf(field+".recommended_resolution", "recommended resolution %s is not an alternative of %s",
					a.RecommendedResolution, a.AssumptionID)
			}
		}
		for j, alt := range a.Alternatives {
			for _, role := range alt.AllowedRoles {
				if _, ok := v.gate.ParseRole(string(role)); !ok {
					report.errorf(fmt.Sprintf("%s.alternatives[%d].allowed_roles", field, j), "unknown role %q", role)
				}
			}
		}
	}

	return report
}

// Request checks a decision request against its claim and catalogs.
// Dangling alternatives and options are errors; duplicate keys, role gate
// violations and resolutions for facts the claim does not carry are warnings.
func (v *Validator) Request(req model.DecisionRunRequest, claim model.Claim, catalogs engine.Catalogs) Report {
	report := v.Struct(req)
	report.merge(v.Claim(claim))
	if catalogs.Interpretations != nil {
		report.merge(v.InterpretationSet(*catalogs.Interpretations))
	}
	if catalogs.Assumptions != nil {
		report.merge(v.AssumptionSet(*catalogs.Assumptions))
	}

	if req.Role != "" {
		if _, ok := v.gate.ParseRole(string(req.Role)); !ok {
			report.errorf("role", "unknown role %q", req.Role)
		}
	}

	report.merge(v.Inputs(req.Role, req.ResolvedAssumptions, req.SelectedInterpretations, claim, catalogs))
	return report
}

// Inputs checks resolutions and selections on their own, as a counterfactual
// perturbation does before it is replayed
func (v *Validator) Inputs(
	role model.Role,
	resolved []model.ResolvedAssumption,
	selected []model.SelectedInterpretation,
	claim model.Claim,
	catalogs engine.Catalogs,
) Report {
	var report Report

	for _, dup := range engine.DuplicateFactIDs(resolved) {
		report.warnf("resolved_assumptions", "fact %s is resolved more than once, only the first resolution is used", dup)
	}
	for _, dup := range engine.DuplicateDecisionPoints(selected) {
		report.warnf("selected_interpretations", "decision point %s is selected more than once, only the first selection is used", dup)
	}

	for i, ra := range resolved {
		field := fmt.Sprintf("resolved_assumptions[%d]", i)

		fact, ok := claim.Fact(ra.FactID)
		switch {
		case !ok:
			report.warnf(field, "claim %s has no fact %s", claim.ClaimID, ra.FactID)
		case fact.Status == model.FactKnown:
			report.warnf(field, "fact %s is already known, resolution %s overrides it", ra.FactID, ra.ChosenResolution)
		}

		if catalogs.Assumptions == nil {
			continue
		}
		assumption, ok := catalogs.Assumptions.ForFact(ra.FactID)
		if !ok {
			continue
		}
		alt, ok := assumption.Alternative(ra.ChosenResolution)
		if !ok {
			report.errorf(field+".chosen_resolution", "resolution %s is not an alternative of %s",
				ra.ChosenResolution, assumption.AssumptionID)
			continue
		}

		actor := ra.ChosenByRole
		if actor == "" {
			actor = role
		}
		if actor != "" && !v.gate.CanChoose(actor, alt) {
			report.warnf(field+".chosen_by_role", "role %s is not among the roles allowed to choose %s", actor, alt.AlternativeID)
		}
	}

	for i, si := range selected {
		if catalogs.Interpretations == nil {
			break
		}
		field := fmt.Sprintf("selected_interpretations[%d]", i)
		dp, ok := catalogs.Interpretations.DecisionPoint(si.DecisionPointID)
		if !ok {
			report.warnf(field, "interpretation set %s has no decision point %s",
				catalogs.Interpretations.InterpretationSetID, si.DecisionPointID)
			continue
		}
		if !dp.HasOption(si.Option) {
			report.errorf(field+".option", "option %s is not one of the options of %s", si.Option, dp.DecisionPointID)
		}
	}

	return report
}

// trimNamespace drops the root struct name from a validator namespace
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
