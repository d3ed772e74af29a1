package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

// DocumentValidationResponder answers MANDATORY_DOCUMENTS requests for the documents module.
type DocumentValidationResponder struct {
	instances ports.InstanceRepository
}

func NewDocumentValidationResponder(instances ports.InstanceRepository) *DocumentValidationResponder {
	return &DocumentValidationResponder{instances: instances}
}

func (r *DocumentValidationResponder) Respond(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResponse, error) {
	resp := domain.ValidationResponse{RequestID: req.RequestID, Kind: req.Kind}
	if len(req.DocumentIDs) == 0 {
		resp.ErrorMessage = "no documents supplied"
		return resp, nil
	}

	covered := make(map[string]bool, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		inst, err := r.instances.GetByID(ctx, id)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				resp.Details = append(resp.Details, fmt.Sprintf("document %s not found", id))
				continue
			}
			return domain.ValidationResponse{}, fmt.Errorf("load document %s: %w", id, err)
		}
		resp.DocumentCount++
		switch {
		case req.FilingID != "" && inst.FilingID != req.FilingID:
			resp.Details = append(resp.Details, fmt.Sprintf("document %s belongs to another filing", id))
		case inst.Status != domain.InstanceFinalized:
			resp.Details = append(resp.Details, fmt.Sprintf("document %s (%s) is %s", id, inst.TemplateCode, inst.Status))
		default:
			covered[inst.TemplateID] = true
		}
	}
	// Coverage is by template id: a retired template's instance never covers a
	// newer template reusing its code.
	for _, tpl := range req.RequiredTemplates {
		if !covered[tpl.ID] {
			resp.Details = append(resp.Details, fmt.Sprintf("required document %s is missing or not finalized", tpl.Code))
		}
	}

	resp.Valid = len(resp.Details) == 0
	if !resp.Valid {
		resp.ErrorMessage = "mandatory documents are incomplete"
	}
	return resp, nil
}

// PaymentValidationResponder answers PAYMENT_APPROVED requests for the payments module.
type PaymentValidationResponder struct {
	payments ports.PaymentRepository
}

func NewPaymentValidationResponder(payments ports.PaymentRepository) *PaymentValidationResponder {
	return &PaymentValidationResponder{payments: payments}
}

func (r *PaymentValidationResponder) Respond(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResponse, error) {
	resp := domain.ValidationResponse{RequestID: req.RequestID, Kind: req.Kind}
	if req.PaymentID == "" {
		resp.ErrorMessage = "no payment reference supplied"
		return resp, nil
	}
	payment, err := r.payments.GetByID(ctx, req.PaymentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			resp.ErrorMessage = fmt.Sprintf("payment %s not found", req.PaymentID)
			return resp, nil
		}
		return domain.ValidationResponse{}, fmt.Errorf("load payment %s: %w", req.PaymentID, err)
	}
	resp.ErrorMessage = payment.RejectionFor(req.OwnerEntity)
	resp.Valid = resp.ErrorMessage == ""
	return resp, nil
}

// ResponderObserver tracks responder activity; worker metrics implement it.
type ResponderObserver interface {
	StartValidation()
	FinishValidation(kind domain.ValidationKind, duration time.Duration, err error)
}

// ValidationDispatcher routes bus requests to the responder owning their kind and
// publishes the verdict. Responder failures become negative verdicts so the
// requester is never left waiting on an error it cannot see.
type ValidationDispatcher struct {
	bus        ports.ValidationBus
	responders map[domain.ValidationKind]ports.ValidationResponder
	observer   ResponderObserver
	now        func() time.Time
}

func NewValidationDispatcher(
	bus ports.ValidationBus,
	responders map[domain.ValidationKind]ports.ValidationResponder,
	observer ResponderObserver,
) *ValidationDispatcher {
	return &ValidationDispatcher{
		bus:        bus,
		responders: responders,
		observer:   observer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (d *ValidationDispatcher) Handle(ctx context.Context, req domain.ValidationRequest) error {
	start := d.now()
	if d.observer != nil {
		d.observer.StartValidation()
	}

	resp, err := d.answer(ctx, req)
	if err != nil {
		slog.Error("validation_responder_failed", "request_id", req.RequestID, "kind", req.Kind, "error", err)
		resp = domain.ValidationResponse{ErrorMessage: err.Error()}
	}
	resp.RequestID = req.RequestID
	resp.Kind = req.Kind
	resp.ReplyTo = req.ReplyTo
	resp.RespondedAt = d.now()

	publishErr := d.bus.PublishValidationResponse(ctx, resp)
	if d.observer != nil {
		finishErr := err
		if finishErr == nil {
			finishErr = publishErr
		}
		d.observer.FinishValidation(req.Kind, d.now().Sub(start), finishErr)
	}
	if publishErr != nil {
		return fmt.Errorf("publish %s validation response: %w", req.Kind, publishErr)
	}
	return nil
}

func (d *ValidationDispatcher) answer(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResponse, error) {
	responder, ok := d.responders[req.Kind]
	if !ok {
		return domain.ValidationResponse{}, fmt.Errorf("no responder for validation kind %q", req.Kind)
	}
	return responder.Respond(ctx, req)
}
