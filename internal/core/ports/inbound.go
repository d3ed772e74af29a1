package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

// ProductClassifier is the inbound contract for track classification.
type ProductClassifier interface {
	Classify(ctx context.Context, input domain.ClassificationInput) (domain.ClassificationResult, error)
	Tracks() []domain.TrackInfo
}

// TemplateCatalog is the inbound contract for the document template registry.
type TemplateCatalog interface {
	Create(ctx context.Context, tpl domain.DocumentTemplate) (*domain.DocumentTemplate, error)
	Update(ctx context.Context, code string, patch domain.TemplatePatch) (*domain.DocumentTemplate, error)
	Deactivate(ctx context.Context, code string) error
	Get(ctx context.Context, code string) (*domain.DocumentTemplate, error)
	FindApplicable(ctx context.Context, track domain.ProcedureTrack) ([]domain.DocumentTemplate, error)
	FindRequired(ctx context.Context, track domain.ProcedureTrack) ([]domain.DocumentTemplate, error)
	FindByTrackAndRiskTier(ctx context.Context, track domain.ProcedureTrack, tier domain.RiskTier) ([]domain.DocumentTemplate, error)
}

// DocumentInstanceService drives the per-filing document lifecycle.
type DocumentInstanceService interface {
	Create(ctx context.Context, filingID, templateCode string, initialData map[string]any) (*domain.DocumentInstance, error)
	Get(ctx context.Context, id string) (*domain.DocumentInstance, error)
	ListByFiling(ctx context.Context, filingID string) ([]domain.DocumentInstance, error)
	FillData(ctx context.Context, id string, data map[string]any) (*domain.DocumentInstance, error)
	UploadFiles(ctx context.Context, id string, files []domain.FileUpload) (*domain.DocumentInstance, error)
	Verify(ctx context.Context, id string) (*domain.DocumentInstance, error)
	Finalize(ctx context.Context, id string) (*domain.DocumentInstance, error)
	Delete(ctx context.Context, id string) error
}

// CompletenessReporter reports filing readiness. Both calls are side-effect free.
type CompletenessReporter interface {
	Summarize(ctx context.Context, filingID string) (*domain.CompletenessSummary, error)
	ExportChecklist(ctx context.Context, filingID string, w io.Writer) (contentType string, err error)
}

// FilingService is the inbound contract for drafting and submitting filings.
type FilingService interface {
	Open(ctx context.Context, req domain.OpenFilingRequest) (*domain.Filing, error)
	Get(ctx context.Context, id string) (*domain.Filing, error)
	Submit(ctx context.Context, req domain.SubmitFilingRequest) (*domain.SubmitFilingResult, error)
	Delete(ctx context.Context, id string) error
}

// PaymentLedger is the inbound contract of the payments module.
type PaymentLedger interface {
	Register(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Payment, error)
}

// ValidationCorrelator matches asynchronously answered validation requests to their callers.
type ValidationCorrelator interface {
	Request(ctx context.Context, kind domain.ValidationKind, payload domain.ValidationPayload) (string, error)
	AwaitResponse(requestID string, timeout time.Duration) (domain.ValidationResponse, error)
}

// ValidationResponder answers validation requests on behalf of a sister module.
type ValidationResponder interface {
	Respond(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResponse, error)
}
