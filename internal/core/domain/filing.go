package domain

import "time"

type FilingStatus string

const (
	FilingDraft               FilingStatus = "DRAFT"
	FilingFiled               FilingStatus = "FILED"
	FilingTechnicalReview     FilingStatus = "TECHNICAL_REVIEW"
	FilingInformationRequired FilingStatus = "INFORMATION_REQUIRED"
	FilingApproved            FilingStatus = "APPROVED"
	FilingRejected            FilingStatus = "REJECTED"
)

// Active filings block another submission for the same product and track.
func (s FilingStatus) Active() bool {
	return s != FilingDraft && s != FilingRejected
}

type Filing struct {
	ID             string               `json:"id"`
	ProductID      string               `json:"product_id"`
	ProductName    string               `json:"product_name,omitempty"`
	OwnerEntity    string               `json:"owner_entity"`
	Track          ProcedureTrack       `json:"track"`
	Classification *ClassificationInput `json:"classification,omitempty"`
	Status         FilingStatus         `json:"status"`
	FilingNumber   string               `json:"filing_number,omitempty"`
	PaymentID      string               `json:"payment_id,omitempty"`
	FiledAt        *time.Time           `json:"filed_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type OpenFilingRequest struct {
	ProductID      string              `json:"product_id"`
	OwnerEntity    string              `json:"owner_entity"`
	PaymentID      string              `json:"payment_id,omitempty"`
	Classification ClassificationInput `json:"classification"`
}

type SubmitFilingRequest struct {
	FilingID string `json:"filing_id"`
	// PaymentID overrides the payment recorded on the draft when set.
	PaymentID string `json:"payment_id,omitempty"`
}

type SubmitFilingResult struct {
	FilingID     string       `json:"filing_id"`
	FilingNumber string       `json:"filing_number"`
	Status       FilingStatus `json:"status"`
	FiledAt      time.Time    `json:"filed_at"`
}

type CompletenessSummary struct {
	FilingID            string         `json:"filing_id"`
	Track               ProcedureTrack `json:"track"`
	TotalRequired       int            `json:"total_required"`
	CompletedRequired   int            `json:"completed_required"`
	TotalOptional       int            `json:"total_optional"`
	CompletedOptional   int            `json:"completed_optional"`
	Percent             float64        `json:"percent"`
	AllRequiredComplete bool           `json:"all_required_complete"`
	MissingRequired     []TemplateRef  `json:"missing_required"`
	AvailableOptional   []TemplateRef  `json:"available_optional"`
}

type TemplateRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
