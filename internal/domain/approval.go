package domain

import "time"

// Approval is the canonical record for a single regulatory decision event,
// keyed by the decision number assigned by the approvals registry.
type Approval struct {
	Number      string    `json:"number"`
	BrandName   string    `json:"brandName"`
	GenericName string    `json:"genericName"`
	Applicant   string    `json:"applicant"`
	Companies   []string  `json:"companies"` // co-marketing companies
	Ingredients []string  `json:"ingredients"`
	Routes      []string  `json:"routes"`
	Forms       []string  `json:"forms"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	ApprovedAt  time.Time `json:"approvedAt"`
}

func (a Approval) NoveltyKey() string { return a.Number }

func (a Approval) EventTime() time.Time { return a.ApprovedAt }
