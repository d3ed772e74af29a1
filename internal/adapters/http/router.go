package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/config"
	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const maxJSONBodyBytes = 1 << 20

// RequestMetrics instruments the handler chain and serves the scrape endpoint.
type RequestMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// HealthReporter reports dependency health for /healthz.
type HealthReporter interface {
	Health(ctx context.Context) (healthy bool, details map[string]any)
}

type Dependencies struct {
	Classifier   ports.ProductClassifier
	Templates    ports.TemplateCatalog
	Documents    ports.DocumentInstanceService
	Completeness ports.CompletenessReporter
	Filings      ports.FilingService
	Payments     ports.PaymentLedger

	// Files serves stored uploads and artifacts under /files/ when set.
	Files   ports.FileStorage
	Metrics RequestMetrics
	Health  HealthReporter
}

type Router struct {
	classifier   ports.ProductClassifier
	templates    ports.TemplateCatalog
	documents    ports.DocumentInstanceService
	completeness ports.CompletenessReporter
	filings      ports.FilingService
	payments     ports.PaymentLedger
	files        ports.FileStorage

	metrics RequestMetrics
	health  HealthReporter

	maxUploadBytes   int64
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}
	return &Router{
		classifier:   deps.Classifier,
		templates:    deps.Templates,
		documents:    deps.Documents,
		completeness: deps.Completeness,
		filings:      deps.Filings,
		payments:     deps.Payments,
		files:        deps.Files,
		metrics:      deps.Metrics,
		health:       deps.Health,

		maxUploadBytes:   maxUpload,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: time.Duration(cfg.APIBackpressureWaitMS) * time.Millisecond,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.files != nil {
		mux.HandleFunc("GET /files/{key...}", rt.downloadFile)
	}

	mux.HandleFunc("POST /v1/classifications", rt.classify)
	mux.HandleFunc("GET /v1/tracks", rt.listTracks)

	mux.HandleFunc("GET /v1/templates", rt.listTemplates)
	mux.HandleFunc("POST /v1/templates", rt.createTemplate)
	mux.HandleFunc("GET /v1/templates/{code}", rt.getTemplate)
	mux.HandleFunc("PUT /v1/templates/{code}", rt.updateTemplate)
	mux.HandleFunc("DELETE /v1/templates/{code}", rt.deactivateTemplate)

	mux.HandleFunc("POST /v1/filings", rt.openFiling)
	mux.HandleFunc("GET /v1/filings/{id}", rt.getFiling)
	mux.HandleFunc("DELETE /v1/filings/{id}", rt.deleteFiling)
	mux.HandleFunc("GET /v1/filings/{id}/completeness", rt.completenessSummary)
	mux.HandleFunc("GET /v1/filings/{id}/completeness.xlsx", rt.completenessChecklist)
	mux.HandleFunc("POST /v1/filings/{id}/submit", rt.submitFiling)
	mux.HandleFunc("GET /v1/filings/{id}/documents", rt.listDocuments)
	mux.HandleFunc("POST /v1/filings/{id}/documents", rt.createDocument)

	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("PUT /v1/documents/{id}/data", rt.fillDocument)
	mux.HandleFunc("POST /v1/documents/{id}/files", rt.uploadDocumentFiles)
	mux.HandleFunc("POST /v1/documents/{id}/verify", rt.verifyDocument)
	mux.HandleFunc("POST /v1/documents/{id}/finalize", rt.finalizeDocument)

	mux.HandleFunc("POST /v1/payments", rt.registerPayment)
	mux.HandleFunc("GET /v1/payments/{id}", rt.getPayment)
	mux.HandleFunc("PATCH /v1/payments/{id}", rt.updatePayment)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	healthy, details := rt.health.Health(r.Context())
	body := map[string]any{"status": "ok"}
	for k, v := range details {
		body[k] = v
	}
	status := http.StatusOK
	if !healthy {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}

// writeDomainError maps the error kind to a status. Only 5xx responses are
// logged here; the access log already covers the rest.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := classifyError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"kind", kind,
			"error", err,
		)
	}
	writeError(w, status, kind, err.Error())
}

// decodeJSON rejects malformed or oversized bodies with ErrInvalidInput. An
// empty body leaves dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}
