package model

// CatalogStatus is the lifecycle state of a versioned catalog
type CatalogStatus string

const (
	CatalogDraft      CatalogStatus = "Draft"
	CatalogApproved   CatalogStatus = "Approved"
	CatalogDeprecated CatalogStatus = "Deprecated"
)

// InterpretationSet is a versioned, jurisdiction scoped set of decision points
type InterpretationSet struct {
	InterpretationSetID string          `json:"interpretation_set_id" validate:"required"`
	Jurisdiction        string          `json:"jurisdiction"`
	ProductLine         string          `json:"product_line"`
	EffectiveFrom       string          `json:"effective_from"`
	Version             string          `json:"version" validate:"required"`
	Status              CatalogStatus   `json:"status"`
	DecisionPoints      []DecisionPoint `json:"decision_points" validate:"dive"`
}

// DecisionPoint is a policy question with a closed set of options
type DecisionPoint struct {
	DecisionPointID string           `json:"decision_point_id" validate:"required"`
	Label           string           `json:"label"`
	Description     string           `json:"description"`
	Options         []DecisionOption `json:"options" validate:"min=1,dive"`
	DefaultOption   string           `json:"default_option" validate:"required"`
	Owner           string           `json:"owner,omitempty"`
	Status          CatalogStatus    `json:"status,omitempty"`
}

// DecisionOption is one selectable answer to a decision point
type DecisionOption struct {
	OptionID    string `json:"option_id" validate:"required"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// DecisionPoint returns the first decision point with the given ID
func (s *InterpretationSet) DecisionPoint(id string) (DecisionPoint, bool) {
	if s == nil {
		return DecisionPoint{}, false
	}
	for _, dp := range s.DecisionPoints {
		if dp.DecisionPointID == id {
			return dp, true
		}
	}
	return DecisionPoint{}, false
}

// HasOption reports whether optionID is one of the listed options
func (dp DecisionPoint) HasOption(optionID string) bool {
	for _, o := range dp.Options {
		if o.OptionID == optionID {
			return true
		}
	}
	return false
}

// AssumptionSet is a versioned collection of governed assumptions
type AssumptionSet struct {
	AssumptionSetID string        `json:"assumption_set_id" validate:"required"`
	Jurisdiction    string        `json:"jurisdiction"`
	ProductLine     string        `json:"product_line"`
	Version         string        `json:"version" validate:"required"`
	Status          CatalogStatus `json:"status"`
	Assumptions     []Assumption  `json:"assumptions" validate:"dive"`
}

// Assumption resolves an unknown fact with a recommended default and alternatives
type Assumption struct {
	AssumptionID          string        `json:"assumption_id" validate:"required"`
	Label                 string        `json:"label"`
	Trigger               string        `json:"trigger"`
	TriggerFactID         string        `json:"trigger_fact_id" validate:"required"`
	Description           string        `json:"description"`
	RecommendedResolution string        `json:"recommended_resolution"`
	Alternatives          []Alternative `json:"alternatives" validate:"dive"`
	RiskTier              RiskTier      `json:"risk_tier"`
}

// Alternative is a role gated resolution of an assumption
type Alternative struct {
	AlternativeID string `json:"alternative_id" validate:"required"`
	Label         string `json:"label"`
	Description   string `json:"description,omitempty"`
	AllowedRoles  []Role `json:"allowed_roles"`
}

// RiskTier grades the impact of getting an assumption wrong
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// Role is the label of the actor producing a decision or a change
type Role string

const (
	RoleAdjuster    Role = "Adjuster"
	RoleSupervisor  Role = "Supervisor"
	RoleQALead      Role = "QA Lead"
	RolePolicyOwner Role = "Policy Owner"
)

// Roles lists every known role
func Roles() []Role {
	return []Role{RoleAdjuster, RoleSupervisor, RoleQALead, RolePolicyOwner}
}

// ForFact returns the first assumption triggered by the given fact
func (s *AssumptionSet) ForFact(factID string) (Assumption, bool) {
	if s == nil {
		return Assumption{}, false
	}
	for _, a := range s.Assumptions {
		if a.TriggerFactID == factID {
			return a, true
		}
	}
	return Assumption{}, false
}

// Alternative returns the alternative with the given ID
func (a Assumption) Alternative(id string) (Alternative, bool) {
	for _, alt := range a.Alternatives {
		if alt.AlternativeID == id {
			return alt, true
		}
	}
	return Alternative{}, false
}

// CatalogFilter narrows catalog and claim listings
type CatalogFilter struct {
	Jurisdiction string
	ProductLine  string
	Search       string
}
