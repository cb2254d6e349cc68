package model

// Claim is the immutable input record evaluated by the decision engine
type Claim struct {
	ClaimID      string      `json:"claim_id" validate:"required"`
	Jurisdiction string      `json:"jurisdiction" validate:"required"`
	ProductLine  string      `json:"product_line" validate:"required"`
	LossDate     string      `json:"loss_date"`
	PolicyID     string      `json:"policy_id"`
	Status       ClaimStatus `json:"status"`
	Facts        []Fact      `json:"facts" validate:"dive"`
	Evidence     []Evidence  `json:"evidence" validate:"dive"`
	LineItems    []LineItem  `json:"line_items" validate:"dive"`
}

// ClaimSummary is the list view of a claim
type ClaimSummary struct {
	ClaimID      string      `json:"claim_id"`
	Jurisdiction string      `json:"jurisdiction"`
	ProductLine  string      `json:"product_line"`
	LossDate     string      `json:"loss_date"`
	Status       ClaimStatus `json:"status"`
}

// Summary drops facts, evidence and line items
func (c Claim) Summary() ClaimSummary {
	return ClaimSummary{
		ClaimID:      c.ClaimID,
		Jurisdiction: c.Jurisdiction,
		ProductLine:  c.ProductLine,
		LossDate:     c.LossDate,
		Status:       c.Status,
	}
}

// ClaimStatus tracks where a claim sits in the handling workflow
type ClaimStatus string

const (
	ClaimStatusReady   ClaimStatus = "Ready"
	ClaimStatusDecided ClaimStatus = "Decided"
)

// Fact is a single known or unknown assertion about the loss
type Fact struct {
	FactID string     `json:"fact_id" validate:"required"`
	Label  string     `json:"label"`
	Value  *string    `json:"value,omitempty"`
	Status FactStatus `json:"status" validate:"oneof=KNOWN UNKNOWN"`
	Source string     `json:"source"`
}

// FactStatus marks whether a fact value is known at claim time
type FactStatus string

const (
	FactKnown   FactStatus = "KNOWN"
	FactUnknown FactStatus = "UNKNOWN"
)

// LineItem is a claimable amount with a category tag
type LineItem struct {
	ItemID   string       `json:"item_id" validate:"required"`
	Label    string       `json:"label"`
	Amount   float64      `json:"amount_chf"`
	Category ItemCategory `json:"category" validate:"required"`
}

// ItemCategory tags a line item for coverage evaluation
type ItemCategory string

const (
	CategoryRepair    ItemCategory = "repair"
	CategoryAccessory ItemCategory = "accessory"
)

// UnknownFacts returns the facts whose value is not known
func (c Claim) UnknownFacts() []Fact {
	var unknown []Fact
	for _, f := range c.Facts {
		if f.Status == FactUnknown {
			unknown = append(unknown, f)
		}
	}
	return unknown
}

// ItemsIn returns line items of the given category in claim order
func (c Claim) ItemsIn(category ItemCategory) []LineItem {
	var items []LineItem
	for _, item := range c.LineItems {
		if item.Category == category {
			items = append(items, item)
		}
	}
	return items
}

// Fact returns the first fact with the given ID
func (c Claim) Fact(factID string) (Fact, bool) {
	for _, f := range c.Facts {
		if f.FactID == factID {
			return f, true
		}
	}
	return Fact{}, false
}
