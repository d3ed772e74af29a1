package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

// TemplateQuery narrows active templates for a track. MaxTierRank 0 disables tier filtering.
type TemplateQuery struct {
	Track        domain.ProcedureTrack
	RequiredOnly bool
	MaxTierRank  int
}

// TemplateRepository persists the document template catalog.
// Create and Update return domain.ErrAlreadyExists when another active template holds the code.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.DocumentTemplate) error
	Update(ctx context.Context, tpl *domain.DocumentTemplate) error
	GetByID(ctx context.Context, id string) (*domain.DocumentTemplate, error)
	GetActiveByCode(ctx context.Context, code string) (*domain.DocumentTemplate, error)
	FindActive(ctx context.Context, query TemplateQuery) ([]domain.DocumentTemplate, error)
}

// InstanceRepository persists per-filing document instances.
// Create returns domain.ErrAlreadyExists for a second instance of the same (filing, template).
// Update is conditional on expectedVersion and returns domain.ErrInvalidTransition on a lost race.
type InstanceRepository interface {
	Create(ctx context.Context, inst *domain.DocumentInstance) error
	GetByID(ctx context.Context, id string) (*domain.DocumentInstance, error)
	ListByFiling(ctx context.Context, filingID string) ([]domain.DocumentInstance, error)
	Update(ctx context.Context, inst *domain.DocumentInstance, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

// FilingRepository persists filings. Deleting a filing deletes its instances.
type FilingRepository interface {
	Create(ctx context.Context, filing *domain.Filing) error
	GetByID(ctx context.Context, id string) (*domain.Filing, error)
	ExistsActive(ctx context.Context, productID string, track domain.ProcedureTrack) (bool, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// MarkFiled stamps the number only while the filing is still a draft without one.
	MarkFiled(ctx context.Context, id, number, paymentID string, filedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// PaymentRepository is the payment ledger owned by the payments module.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
}

// FileStorage stores raw uploaded and rendered files.
type FileStorage interface {
	Store(ctx context.Context, folder, name string, data io.Reader) (string, error)
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}

// Renderer turns a filled instance into an immutable artifact.
type Renderer interface {
	Render(ctx context.Context, tpl *domain.DocumentTemplate, inst *domain.DocumentInstance) (*domain.Artifact, error)
}

// FieldValidator checks a single submitted value against its field definition.
type FieldValidator interface {
	ValidateField(field domain.FieldDefinition, value any) error
}

// FileInspector checks file content beyond the declared MIME type and size.
type FileInspector interface {
	Inspect(upload domain.FileUpload) error
}

// ChecklistExporter writes a completeness summary in a downloadable format.
type ChecklistExporter interface {
	ExportChecklist(ctx context.Context, summary *domain.CompletenessSummary, w io.Writer) error
	ContentType() string
}

// ValidationBus carries validation requests to sister modules and their answers back.
type ValidationBus interface {
	PublishValidationRequest(ctx context.Context, req domain.ValidationRequest) error
	SubscribeValidationRequests(ctx context.Context, handler func(context.Context, domain.ValidationRequest) error) error
	PublishValidationResponse(ctx context.Context, resp domain.ValidationResponse) error
	SubscribeValidationResponses(ctx context.Context, handler func(context.Context, domain.ValidationResponse) error) error
}
