package httpadapter

import (
	"net/http"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

// kindStatus is ordered: an error carrying two kinds maps to the first match.
// A timeout during a precondition check therefore surfaces as 504.
var kindStatus = []struct {
	kind   error
	name   string
	status int
}{
	{domain.ErrValidationTimeout, "validation_timeout", http.StatusGatewayTimeout},
	{domain.ErrDuplicateFiling, "duplicate_filing", http.StatusConflict},
	{domain.ErrIncompleteDocuments, "incomplete_documents", http.StatusUnprocessableEntity},
	{domain.ErrInvalidPayment, "invalid_payment", http.StatusPaymentRequired},
	{domain.ErrNotFound, "not_found", http.StatusNotFound},
	{domain.ErrAlreadyExists, "already_exists", http.StatusConflict},
	{domain.ErrInvalidTransition, "invalid_transition", http.StatusConflict},
	{domain.ErrFileTooLarge, "file_too_large", http.StatusRequestEntityTooLarge},
	{domain.ErrInvalidFile, "invalid_file", http.StatusUnsupportedMediaType},
	{domain.ErrInvalidData, "invalid_data", http.StatusUnprocessableEntity},
	{domain.ErrInsufficientData, "insufficient_data", http.StatusUnprocessableEntity},
	{domain.ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{domain.ErrRenderingFailed, "rendering_failed", http.StatusBadGateway},
	{domain.ErrStorageFailure, "storage_failure", http.StatusInsufficientStorage},
	{domain.ErrTemporary, "temporary", http.StatusServiceUnavailable},
}

func mapErrorToHTTPStatus(err error) int {
	_, status := classifyError(err)
	return status
}

func classifyError(err error) (string, int) {
	for _, entry := range kindStatus {
		if domain.IsKind(err, entry.kind) {
			return entry.name, entry.status
		}
	}
	return "internal", http.StatusInternalServerError
}
