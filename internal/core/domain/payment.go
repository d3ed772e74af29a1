package domain

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentApproved   PaymentStatus = "APPROVED"
	PaymentRejected   PaymentStatus = "REJECTED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentApproved, PaymentRejected, PaymentCancelled:
		return true
	}
	return false
}

type Payment struct {
	ID          string        `json:"id"`
	OwnerEntity string        `json:"owner_entity"`
	FilingID    string        `json:"filing_id,omitempty"`
	AmountCOP   int64         `json:"amount_cop"`
	Method      string        `json:"method,omitempty"`
	Reference   string        `json:"reference,omitempty"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RejectionFor returns why the payment cannot back a filing of owner, or ""
// when it is approved and owned by that entity.
func (p Payment) RejectionFor(owner string) string {
	switch {
	case owner != "" && p.OwnerEntity != owner:
		return "payment " + p.ID + " belongs to another entity"
	case p.Status != PaymentApproved:
		return "payment " + p.ID + " is " + string(p.Status)
	}
	return ""
}
