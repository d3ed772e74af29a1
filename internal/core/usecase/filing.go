package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const (
	PaymentModeEvent  = "event"
	PaymentModeDirect = "direct"
)

type FilingConfig struct {
	ValidationTimeout time.Duration
	// PaymentMode selects how payment approval is confirmed: through the bus or by reading the ledger.
	PaymentMode       string
	MaxNumberAttempts int
}

// SubmissionObserver records the outcome of each submission attempt.
type SubmissionObserver interface {
	ObserveSubmission(outcome string, duration time.Duration)
}

type FilingUseCase struct {
	filings    ports.FilingRepository
	instances  ports.InstanceRepository
	templates  ports.TemplateRepository
	payments   ports.PaymentRepository
	storage    ports.FileStorage
	correlator ports.ValidationCorrelator
	observer   SubmissionObserver
	cfg        FilingConfig

	now     func() time.Time
	numbers func(time.Time) string
}

func NewFilingUseCase(
	filings ports.FilingRepository,
	instances ports.InstanceRepository,
	templates ports.TemplateRepository,
	payments ports.PaymentRepository,
	storage ports.FileStorage,
	correlator ports.ValidationCorrelator,
	observer SubmissionObserver,
	cfg FilingConfig,
) *FilingUseCase {
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 5 * time.Second
	}
	if cfg.PaymentMode == "" {
		cfg.PaymentMode = PaymentModeEvent
	}
	if cfg.MaxNumberAttempts <= 0 {
		cfg.MaxNumberAttempts = 10
	}
	return &FilingUseCase{
		filings:    filings,
		instances:  instances,
		templates:  templates,
		payments:   payments,
		storage:    storage,
		correlator: correlator,
		observer:   observer,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		numbers:    filingNumberCandidate,
	}
}

// Open classifies the product and stores a DRAFT filing on the derived track.
func (uc *FilingUseCase) Open(ctx context.Context, req domain.OpenFilingRequest) (*domain.Filing, error) {
	if strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.OwnerEntity) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "open filing", "product_id and owner_entity are required")
	}
	if err := validateClassificationInput(req.Classification); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open filing", err)
	}
	result := Classify(req.Classification)
	if !result.Coherent {
		return nil, domain.NewError(domain.ErrInvalidData, "open filing", "%s", result.Justification)
	}

	now := uc.now()
	input := req.Classification
	filing := &domain.Filing{
		ID:             uuid.NewString(),
		ProductID:      strings.TrimSpace(req.ProductID),
		ProductName:    input.ProductName,
		OwnerEntity:    strings.TrimSpace(req.OwnerEntity),
		Track:          result.Track,
		Classification: &input,
		Status:         domain.FilingDraft,
		PaymentID:      req.PaymentID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.filings.Create(ctx, filing); err != nil {
		return nil, fmt.Errorf("create filing: %w", err)
	}
	return filing, nil
}

func (uc *FilingUseCase) Get(ctx context.Context, id string) (*domain.Filing, error) {
	return uc.filings.GetByID(ctx, id)
}

// Submit runs the filing preconditions in order and stamps a filing number only
// when all of them pass. Nothing is persisted before the final step.
func (uc *FilingUseCase) Submit(ctx context.Context, req domain.SubmitFilingRequest) (*domain.SubmitFilingResult, error) {
	start := uc.now()
	result, err := uc.submit(ctx, req)
	if uc.observer != nil {
		uc.observer.ObserveSubmission(submissionOutcome(err), uc.now().Sub(start))
	}
	return result, err
}

func (uc *FilingUseCase) submit(ctx context.Context, req domain.SubmitFilingRequest) (*domain.SubmitFilingResult, error) {
	filing, err := uc.filings.GetByID(ctx, req.FilingID)
	if err != nil {
		return nil, err
	}

	active, err := uc.filings.ExistsActive(ctx, filing.ProductID, filing.Track)
	if err != nil {
		return nil, fmt.Errorf("check duplicate filing: %w", err)
	}
	if active {
		return nil, domain.NewError(domain.ErrDuplicateFiling, "submit filing",
			"product %s already has an active %s filing", filing.ProductID, filing.Track)
	}
	if filing.Status != domain.FilingDraft {
		return nil, domain.NewError(domain.ErrInvalidTransition, "submit filing", "filing %s is %s", filing.ID, filing.Status)
	}

	if err := uc.checkDocuments(ctx, filing); err != nil {
		return nil, err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		paymentID = filing.PaymentID
	}
	if err := uc.checkPayment(ctx, filing, paymentID); err != nil {
		return nil, err
	}

	number, filedAt, err := uc.stampNumber(ctx, filing.ID, paymentID)
	if err != nil {
		return nil, err
	}
	return &domain.SubmitFilingResult{
		FilingID:     filing.ID,
		FilingNumber: number,
		Status:       domain.FilingFiled,
		FiledAt:      filedAt,
	}, nil
}

func (uc *FilingUseCase) checkDocuments(ctx context.Context, filing *domain.Filing) error {
	instances, err := uc.instances.ListByFiling(ctx, filing.ID)
	if err != nil {
		return fmt.Errorf("list filing documents: %w", err)
	}
	if len(instances) == 0 {
		return domain.NewError(domain.ErrIncompleteDocuments, "submit filing", "filing %s has no documents", filing.ID)
	}
	required, err := uc.templates.FindActive(ctx, ports.TemplateQuery{Track: filing.Track, RequiredOnly: true})
	if err != nil {
		return fmt.Errorf("load required templates: %w", err)
	}

	payload := domain.ValidationPayload{
		FilingID:    filing.ID,
		OwnerEntity: filing.OwnerEntity,
	}
	for _, inst := range instances {
		payload.DocumentIDs = append(payload.DocumentIDs, inst.ID)
	}
	for _, tpl := range required {
		payload.RequiredTemplates = append(payload.RequiredTemplates, domain.TemplateRef{ID: tpl.ID, Code: tpl.Code, Name: tpl.Name})
	}

	resp, err := uc.ask(ctx, domain.ValidationMandatoryDocuments, payload)
	if err != nil {
		if domain.IsKind(err, domain.ErrValidationTimeout) {
			return domain.WrapError(domain.ErrIncompleteDocuments, "submit filing", err)
		}
		return err
	}
	if !resp.Valid {
		return domain.NewError(domain.ErrIncompleteDocuments, "submit filing", "%s", responseReason(resp, "documents rejected"))
	}
	return nil
}

func (uc *FilingUseCase) checkPayment(ctx context.Context, filing *domain.Filing, paymentID string) error {
	if paymentID == "" {
		return domain.NewError(domain.ErrInvalidPayment, "submit filing", "filing %s has no payment reference", filing.ID)
	}

	if uc.cfg.PaymentMode == PaymentModeDirect {
		payment, err := uc.payments.GetByID(ctx, paymentID)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				return domain.WrapError(domain.ErrInvalidPayment, "submit filing", err)
			}
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		if reason := payment.RejectionFor(filing.OwnerEntity); reason != "" {
			return domain.NewError(domain.ErrInvalidPayment, "submit filing", "%s", reason)
		}
		return nil
	}

	resp, err := uc.ask(ctx, domain.ValidationPaymentApproved, domain.ValidationPayload{
		FilingID:    filing.ID,
		OwnerEntity: filing.OwnerEntity,
		PaymentID:   paymentID,
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrValidationTimeout) {
			return domain.WrapError(domain.ErrInvalidPayment, "submit filing", err)
		}
		return err
	}
	if !resp.Valid {
		return domain.NewError(domain.ErrInvalidPayment, "submit filing", "%s", responseReason(resp, "payment not approved"))
	}
	return nil
}

func (uc *FilingUseCase) ask(ctx context.Context, kind domain.ValidationKind, payload domain.ValidationPayload) (domain.ValidationResponse, error) {
	requestID, err := uc.correlator.Request(ctx, kind, payload)
	if err != nil {
		return domain.ValidationResponse{}, err
	}
	return uc.correlator.AwaitResponse(requestID, uc.cfg.ValidationTimeout)
}

// stampNumber draws candidates until one is free, then persists it. A candidate
// that loses a race at the unique index is retried like a detected collision.
func (uc *FilingUseCase) stampNumber(ctx context.Context, filingID, paymentID string) (string, time.Time, error) {
	for attempt := 0; attempt < uc.cfg.MaxNumberAttempts; attempt++ {
		now := uc.now()
		candidate := uc.numbers(now)
		taken, err := uc.filings.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("check filing number: %w", err)
		}
		if taken {
			continue
		}
		err = uc.filings.MarkFiled(ctx, filingID, candidate, paymentID, now)
		if err == nil {
			return candidate, now, nil
		}
		if domain.IsKind(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", time.Time{}, fmt.Errorf("mark filing %s filed: %w", filingID, err)
	}
	return "", time.Time{}, domain.NewError(domain.ErrStorageFailure, "submit filing",
		"no free filing number after %d attempts", uc.cfg.MaxNumberAttempts)
}

// Delete removes a draft or rejected filing with its instances, then their files on a best-effort basis.
func (uc *FilingUseCase) Delete(ctx context.Context, id string) error {
	filing, err := uc.filings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if filing.Status.Active() {
		return domain.NewError(domain.ErrInvalidTransition, "delete filing", "filing %s is %s", filing.ID, filing.Status)
	}
	instances, err := uc.instances.ListByFiling(ctx, filing.ID)
	if err != nil {
		return fmt.Errorf("list filing documents: %w", err)
	}
	if err := uc.filings.Delete(ctx, filing.ID); err != nil {
		return fmt.Errorf("delete filing %s: %w", filing.ID, err)
	}
	for _, inst := range instances {
		for _, key := range inst.StorageKeys() {
			if err := uc.storage.Delete(ctx, key); err != nil {
				slog.Warn("document_file_cleanup_failed", "filing_id", filing.ID, "storage_key", key, "error", err)
			}
		}
	}
	return nil
}

func filingNumberCandidate(now time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", now.UTC().Format("20060102150405"), rand.IntN(10000))
}

func responseReason(resp domain.ValidationResponse, fallback string) string {
	reason := strings.TrimSpace(resp.ErrorMessage)
	if reason == "" {
		reason = fallback
	}
	if len(resp.Details) > 0 {
		reason += ": " + strings.Join(resp.Details, "; ")
	}
	return reason
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "filed"
	case domain.IsKind(err, domain.ErrValidationTimeout):
		return "validation_timeout"
	case domain.IsKind(err, domain.ErrDuplicateFiling):
		return "duplicate"
	case domain.IsKind(err, domain.ErrIncompleteDocuments):
		return "incomplete_documents"
	case domain.IsKind(err, domain.ErrInvalidPayment):
		return "invalid_payment"
	case domain.IsKind(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
