package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type PaymentRepository struct {
	db *sql.DB
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments (id, owner_entity, filing_id, amount_cop, method, reference, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		payment.ID, payment.OwnerEntity, payment.FilingID, payment.AmountCOP, payment.Method, payment.Reference,
		string(payment.Status), payment.CreatedAt, payment.UpdatedAt,
	)
	return mapError("insert payment", err)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := queryOne(ctx, r.db, `
SELECT id, owner_entity, filing_id, amount_cop, method, reference, status, created_at, updated_at
FROM payments
WHERE id = $1
`, []any{id}, scanPayment)
	if err != nil {
		return nil, mapError("get payment "+id, err)
	}
	return &payment, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	err := execExpectOne(ctx, r.db, `
UPDATE payments
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	return mapError("update payment "+id, err)
}

func scanPayment(row scanner) (domain.Payment, error) {
	var (
		payment domain.Payment
		status  string
	)
	err := row.Scan(
		&payment.ID, &payment.OwnerEntity, &payment.FilingID, &payment.AmountCOP, &payment.Method,
		&payment.Reference, &status, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return domain.Payment{}, err
	}
	payment.Status = domain.PaymentStatus(status)
	return payment, nil
}
