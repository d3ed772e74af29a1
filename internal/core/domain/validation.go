package domain

import "time"

type ValidationKind string

const (
	ValidationMandatoryDocuments ValidationKind = "MANDATORY_DOCUMENTS"
	ValidationPaymentApproved    ValidationKind = "PAYMENT_APPROVED"
)

// ValidationRequest asks a sister module for a verdict; RequestID correlates the answer.
type ValidationRequest struct {
	RequestID         string         `json:"request_id"`
	Kind              ValidationKind `json:"kind"`
	FilingID          string         `json:"filing_id,omitempty"`
	OwnerEntity       string         `json:"owner_entity,omitempty"`
	DocumentIDs       []string       `json:"document_ids,omitempty"`
	RequiredTemplates []TemplateRef  `json:"required_templates,omitempty"`
	PaymentID         string         `json:"payment_id,omitempty"`
	// ReplyTo names the subject the answer must go to; empty means the shared response subject.
	ReplyTo           string         `json:"reply_to,omitempty"`
	RequestedAt       time.Time      `json:"requested_at"`
}

// ValidationPayload is the caller-supplied part of a ValidationRequest.
type ValidationPayload struct {
	FilingID          string
	OwnerEntity       string
	DocumentIDs       []string
	RequiredTemplates []TemplateRef
	PaymentID         string
}

type ValidationResponse struct {
	RequestID     string         `json:"request_id"`
	Kind          ValidationKind `json:"kind"`
	Valid         bool           `json:"valid"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	DocumentCount int            `json:"document_count,omitempty"`
	Details       []string       `json:"details,omitempty"`
	ReplyTo       string         `json:"reply_to,omitempty"`
	RespondedAt   time.Time      `json:"responded_at"`
}
