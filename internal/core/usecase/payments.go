package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type PaymentLedgerUseCase struct {
	repo ports.PaymentRepository
	now  func() time.Time
}

func NewPaymentLedgerUseCase(repo ports.PaymentRepository) *PaymentLedgerUseCase {
	return &PaymentLedgerUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (uc *PaymentLedgerUseCase) Register(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	if strings.TrimSpace(payment.OwnerEntity) == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "register payment", "owner_entity is required")
	}
	if payment.AmountCOP <= 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "register payment", "amount_cop must be positive")
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentPending
	}
	if !payment.Status.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "register payment", "unknown status %q", payment.Status)
	}

	now := uc.now()
	payment.ID = uuid.NewString()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if err := uc.repo.Create(ctx, &payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &payment, nil
}

func (uc *PaymentLedgerUseCase) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return uc.repo.GetByID(ctx, id)
}

// UpdateStatus moves a payment forward. APPROVED, REJECTED and CANCELLED are final.
func (uc *PaymentLedgerUseCase) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "update payment", "unknown status %q", status)
	}
	payment, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if paymentFinal(payment.Status) && payment.Status != status {
		return nil, domain.NewError(domain.ErrInvalidTransition, "update payment", "payment %s is already %s", id, payment.Status)
	}
	if err := uc.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update payment %s: %w", id, err)
	}
	payment.Status = status
	payment.UpdatedAt = uc.now()
	return payment, nil
}

func paymentFinal(status domain.PaymentStatus) bool {
	switch status {
	case domain.PaymentApproved, domain.PaymentRejected, domain.PaymentCancelled:
		return true
	}
	return false
}
