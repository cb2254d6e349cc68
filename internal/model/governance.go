package model

import "time"

// ProposalStatus is the lifecycle state of a change proposal
type ProposalStatus string

const (
	ProposalDraft           ProposalStatus = "Draft"
	ProposalPendingApproval ProposalStatus = "Pending Approval"
	ProposalApproved        ProposalStatus = "Approved"
	ProposalPublished       ProposalStatus = "Published"
	ProposalRejected        ProposalStatus = "Rejected"
)

// ProposalType names the catalog a proposal changes
type ProposalType string

const (
	ProposalTypeAssumption     ProposalType = "Assumption"
	ProposalTypeInterpretation ProposalType = "Interpretation"
)

// ProposalAction is a workflow transition requested on a proposal
type ProposalAction string

const (
	ActionSubmit  ProposalAction = "submit"
	ActionApprove ProposalAction = "approve"
	ActionPublish ProposalAction = "publish"
	ActionReject  ProposalAction = "reject"
)

// QAImpactSummary attaches study figures to a proposal
type QAImpactSummary struct {
	CohortID            string  `json:"cohort_id"`
	CohortLabel         string  `json:"cohort_label"`
	ImpactedClaimsCount int     `json:"impacted_claims_count"`
	TotalDeltaPayout    float64 `json:"total_delta_payout"`
}

// ApprovalStep records one completed workflow transition
type ApprovalStep struct {
	StepName     string     `json:"step_name"`
	RequiredRole Role       `json:"required_role"`
	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  Role       `json:"completed_by,omitempty"`
}

// ChangeProposal is a governed change to an interpretation or assumption set
type ChangeProposal struct {
	ProposalID      string           `json:"proposal_id"`
	Title           string           `json:"title"`
	ProposalType    ProposalType     `json:"proposal_type"`
	ProposedVersion string           `json:"proposed_version"`
	Rationale       string           `json:"rationale"`
	QAImpactSummary *QAImpactSummary `json:"qa_impact_summary,omitempty"`
	Status          ProposalStatus   `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	CreatedBy       Role             `json:"created_by"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	ApprovedBy      Role             `json:"approved_by,omitempty"`
	PublishedAt     *time.Time       `json:"published_at,omitempty"`
	ApprovalSteps   []ApprovalStep   `json:"approval_steps"`
}

// ChangeProposalCreate is the request body for a new proposal
type ChangeProposalCreate struct {
	Title           string           `json:"title" validate:"required"`
	ProposalType    ProposalType     `json:"proposal_type" validate:"oneof=Assumption Interpretation"`
	ProposedVersion string           `json:"proposed_version" validate:"required"`
	Rationale       string           `json:"rationale"`
	QAImpactSummary *QAImpactSummary `json:"qa_impact_summary,omitempty"`
	CreatedBy       Role             `json:"created_by" validate:"required"`
}

// ChangeProposalUpdate requests a workflow transition
type ChangeProposalUpdate struct {
	Action    ProposalAction `json:"action" validate:"oneof=submit approve publish reject"`
	ActorRole Role           `json:"actor_role" validate:"required"`
}
