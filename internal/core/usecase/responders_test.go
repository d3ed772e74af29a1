package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

func TestDocumentResponderChecksOwnershipAndCoverage(t *testing.T) {
	label := domain.TemplateRef{ID: "t-label", Code: "LABEL"}
	rut := domain.TemplateRef{ID: "t-rut", Code: "RUT"}
	instances := newInstanceRepoFake()
	instances.put(domain.DocumentInstance{ID: "a", FilingID: "f1", TemplateID: label.ID, TemplateCode: label.Code, Status: domain.InstanceFinalized})
	instances.put(domain.DocumentInstance{ID: "b", FilingID: "f1", TemplateID: rut.ID, TemplateCode: rut.Code, Status: domain.InstanceUploaded})
	instances.put(domain.DocumentInstance{ID: "c", FilingID: "f2", TemplateID: rut.ID, TemplateCode: rut.Code, Status: domain.InstanceFinalized})
	r := NewDocumentValidationResponder(instances)
	ctx := context.Background()

	ok, err := r.Respond(ctx, domain.ValidationRequest{
		RequestID:         "r1",
		FilingID:          "f1",
		DocumentIDs:       []string{"a"},
		RequiredTemplates: []domain.TemplateRef{label},
	})
	if err != nil || !ok.Valid || ok.DocumentCount != 1 {
		t.Fatalf("expected valid response, got %+v err=%v", ok, err)
	}

	bad, err := r.Respond(ctx, domain.ValidationRequest{
		RequestID:         "r2",
		FilingID:          "f1",
		DocumentIDs:       []string{"a", "b", "c", "zzz"},
		RequiredTemplates: []domain.TemplateRef{label, rut},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if bad.Valid || len(bad.Details) != 4 || bad.DocumentCount != 3 {
		t.Fatalf("unexpected response %+v", bad)
	}

	empty, _ := r.Respond(ctx, domain.ValidationRequest{RequestID: "r3"})
	if empty.Valid {
		t.Fatalf("expected empty document list to be invalid")
	}
}

func TestDocumentResponderIgnoresRetiredTemplateWithReusedCode(t *testing.T) {
	instances := newInstanceRepoFake()
	instances.put(domain.DocumentInstance{ID: "old", FilingID: "f1", TemplateID: "t-label-v1", TemplateCode: "LABEL", Status: domain.InstanceFinalized})
	r := NewDocumentValidationResponder(instances)

	resp, err := r.Respond(context.Background(), domain.ValidationRequest{
		RequestID:         "r1",
		FilingID:          "f1",
		DocumentIDs:       []string{"old"},
		RequiredTemplates: []domain.TemplateRef{{ID: "t-label-v2", Code: "LABEL"}},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if resp.Valid {
		t.Fatalf("expected an instance of the retired template not to cover its successor, got %+v", resp)
	}
}

func TestPaymentResponder(t *testing.T) {
	payments := newPaymentRepoFake(
		domain.Payment{ID: "ok", OwnerEntity: "ACME", Status: domain.PaymentApproved},
		domain.Payment{ID: "other", OwnerEntity: "OTHER", Status: domain.PaymentApproved},
		domain.Payment{ID: "pending", OwnerEntity: "ACME", Status: domain.PaymentPending},
	)
	r := NewPaymentValidationResponder(payments)
	ctx := context.Background()

	cases := map[string]bool{"ok": true, "other": false, "pending": false, "missing": false, "": false}
	for id, want := range cases {
		resp, err := r.Respond(ctx, domain.ValidationRequest{PaymentID: id, OwnerEntity: "ACME"})
		if err != nil {
			t.Fatalf("payment %q: error = %v", id, err)
		}
		if resp.Valid != want {
			t.Fatalf("payment %q: expected valid=%v, got %+v", id, want, resp)
		}
		if !want && resp.ErrorMessage == "" {
			t.Fatalf("payment %q: expected error message", id)
		}
	}
}

type failingResponder struct{}

func (failingResponder) Respond(context.Context, domain.ValidationRequest) (domain.ValidationResponse, error) {
	return domain.ValidationResponse{}, errors.New("db unavailable")
}

type responderObserverFake struct {
	started  int
	finished []error
}

func (o *responderObserverFake) StartValidation() { o.started++ }

func (o *responderObserverFake) FinishValidation(_ domain.ValidationKind, _ time.Duration, err error) {
	o.finished = append(o.finished, err)
}

func TestDispatcherPublishesNegativeVerdictOnFailure(t *testing.T) {
	bus := &busFake{}
	observer := &responderObserverFake{}
	d := NewValidationDispatcher(bus, map[domain.ValidationKind]ports.ValidationResponder{
		domain.ValidationPaymentApproved: failingResponder{},
	}, observer)
	ctx := context.Background()

	if err := d.Handle(ctx, domain.ValidationRequest{RequestID: "r1", Kind: domain.ValidationPaymentApproved}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := d.Handle(ctx, domain.ValidationRequest{RequestID: "r2", Kind: "UNKNOWN"}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(bus.responses) != 2 {
		t.Fatalf("expected two responses, got %d", len(bus.responses))
	}
	for _, resp := range bus.responses {
		if resp.Valid || resp.ErrorMessage == "" || resp.RespondedAt.IsZero() {
			t.Fatalf("expected negative verdict, got %+v", resp)
		}
	}
	if bus.responses[0].RequestID != "r1" || bus.responses[1].RequestID != "r2" {
		t.Fatalf("responses must echo request ids")
	}
	if observer.started != 2 || len(observer.finished) != 2 || observer.finished[0] == nil {
		t.Fatalf("unexpected observer state %+v", observer)
	}

	bus.publishErr = errors.New("nats down")
	if err := d.Handle(ctx, domain.ValidationRequest{RequestID: "r3", Kind: domain.ValidationPaymentApproved}); err == nil {
		t.Fatalf("expected publish error")
	}
}
