package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

func (rt *Router) openFiling(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenFilingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	filing, err := rt.filings.Open(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, filing)
}

func (rt *Router) getFiling(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	filing, err := rt.filings.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filing)
}

func (rt *Router) deleteFiling(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := rt.filings.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) completenessSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	summary, err := rt.completeness.Summarize(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// completenessChecklist renders into memory first so a failure still maps to
// a JSON error instead of a truncated download.
func (rt *Router) completenessChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var buf bytes.Buffer
	contentType, err := rt.completeness.ExportChecklist(r.Context(), id, &buf)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="completeness-%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) submitFiling(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req domain.SubmitFilingRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeDomainError(w, r, err)
		return
	}
	req.FilingID = id
	result, err := rt.filings.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) registerPayment(w http.ResponseWriter, r *http.Request) {
	var payment domain.Payment
	if err := decodeJSON(w, r, &payment, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	created, err := rt.payments.Register(r.Context(), payment)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	payment, err := rt.payments.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (rt *Router) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req struct {
		Status domain.PaymentStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	payment, err := rt.payments.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
