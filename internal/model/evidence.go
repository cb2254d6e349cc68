package model

// Evidence is a document attached to a claim
type Evidence struct {
	EvidenceID string       `json:"evidence_id" validate:"required"`
	Label      string       `json:"label"`
	Type       EvidenceKind `json:"type"`
	URL        string       `json:"url,omitempty"`
}

// EvidenceKind classifies the type of evidence document
type EvidenceKind string

const (
	EvidenceKindPDF   EvidenceKind = "PDF"
	EvidenceKindImage EvidenceKind = "Image"
	EvidenceKindEmail EvidenceKind = "Email"
)

// Evidence document names referenced by trace steps
const (
	EvidenceRepairEstimate = "repair_estimate.pdf"
	EvidenceTowBarInvoice  = "tow_bar_invoice.pdf"
	EvidencePolicySchedule = "policy_schedule.pdf"
)
