package model

// QAFlag marks a noteworthy property of an impact study
type QAFlag string

const (
	FlagInconsistencyDetected QAFlag = "INCONSISTENCY_DETECTED"
	FlagHighImpact            QAFlag = "HIGH_IMPACT"
	FlagLowConfidence         QAFlag = "LOW_CONFIDENCE"
)

// QACohort is a named group of claims used for impact simulation
type QACohort struct {
	CohortID    string   `json:"cohort_id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	ClaimCount  int      `json:"claim_count"`
	ClaimIDs    []string `json:"claim_ids"`
}

// QAProposedChange is a candidate perturbation applied across a cohort
type QAProposedChange struct {
	ProposalID  string     `json:"proposal_id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	ChangeType  ChangeKind `json:"change_type"`
	ChangeRef   string     `json:"change_ref"`
	NewValue    string     `json:"new_value"`
}

// ImpactedClaim is one claim whose payout moved under a proposed change
type ImpactedClaim struct {
	ClaimID string  `json:"claim_id"`
	Delta   float64 `json:"delta"`
}

// QAStudyResult summarises the effect of a proposed change on a cohort
type QAStudyResult struct {
	CohortID            string          `json:"cohort_id"`
	CohortLabel         string          `json:"cohort_label"`
	ProposalID          string          `json:"proposal_id"`
	ProposalLabel       string          `json:"proposal_label"`
	EvaluatedClaims     int             `json:"evaluated_claims"`
	ImpactedClaimsCount int             `json:"impacted_claims_count"`
	TotalDeltaPayout    float64         `json:"total_delta_payout"`
	TopImpactedClaims   []ImpactedClaim `json:"top_impacted_claims"`
	Flags               []QAFlag        `json:"flags"`
	Errors              []string        `json:"errors,omitempty"`
}
