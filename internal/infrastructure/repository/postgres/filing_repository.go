package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type FilingRepository struct {
	db *sql.DB
}

var _ ports.FilingRepository = (*FilingRepository)(nil)

func NewFilingRepository(db *sql.DB) *FilingRepository {
	return &FilingRepository{db: db}
}

const filingColumns = `id, product_id, product_name, owner_entity, track, classification, status,
	filing_number, payment_id, filed_at, created_at, updated_at`

func (r *FilingRepository) Create(ctx context.Context, filing *domain.Filing) error {
	var classification []byte
	if filing.Classification != nil {
		raw, err := json.Marshal(filing.Classification)
		if err != nil {
			return fmt.Errorf("marshal classification: %w", err)
		}
		classification = raw
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO filings (`+filingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		filing.ID, filing.ProductID, filing.ProductName, filing.OwnerEntity, string(filing.Track), classification,
		string(filing.Status), nullString(filing.FilingNumber), filing.PaymentID, filing.FiledAt,
		filing.CreatedAt, filing.UpdatedAt,
	)
	return mapError("insert filing", err)
}

func (r *FilingRepository) GetByID(ctx context.Context, id string) (*domain.Filing, error) {
	filing, err := queryOne(ctx, r.db, `SELECT `+filingColumns+` FROM filings WHERE id = $1`, []any{id}, scanFiling)
	if err != nil {
		return nil, mapError("get filing "+id, err)
	}
	return &filing, nil
}

func (r *FilingRepository) ExistsActive(ctx context.Context, productID string, track domain.ProcedureTrack) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM filings
	WHERE product_id = $1 AND track = $2 AND status NOT IN ('DRAFT', 'REJECTED')
)`, productID, string(track)).Scan(&exists)
	if err != nil {
		return false, mapError("check active filing", err)
	}
	return exists, nil
}

func (r *FilingRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM filings WHERE filing_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, mapError("check filing number", err)
	}
	return exists, nil
}

// MarkFiled is conditional on DRAFT without a number, so two racing submits
// cannot both stamp the filing. A lost race surfaces as InvalidTransition; a
// number taken by another filing as AlreadyExists; an active sibling filing as
// DuplicateFiling.
func (r *FilingRepository) MarkFiled(ctx context.Context, id, number, paymentID string, filedAt time.Time) error {
	err := execExpectOne(ctx, r.db, `
UPDATE filings
SET status = $2, filing_number = $3, payment_id = $4, filed_at = $5, updated_at = $5
WHERE id = $1 AND status = 'DRAFT' AND filing_number IS NULL
`, id, string(domain.FilingFiled), number, paymentID, filedAt)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.NewError(domain.ErrInvalidTransition, "mark filing filed", "filing %s is no longer a draft", id)
	}
	return mapError("mark filing filed", err)
}

func (r *FilingRepository) Delete(ctx context.Context, id string) error {
	err := execExpectOne(ctx, r.db, `DELETE FROM filings WHERE id = $1`, id)
	return mapError("delete filing "+id, err)
}

func scanFiling(row scanner) (domain.Filing, error) {
	var (
		filing         domain.Filing
		track, status  string
		classification []byte
		number         sql.NullString
		filedAt        sql.NullTime
	)
	err := row.Scan(
		&filing.ID, &filing.ProductID, &filing.ProductName, &filing.OwnerEntity, &track, &classification, &status,
		&number, &filing.PaymentID, &filedAt, &filing.CreatedAt, &filing.UpdatedAt,
	)
	if err != nil {
		return domain.Filing{}, err
	}
	filing.Track = domain.ProcedureTrack(track)
	filing.Status = domain.FilingStatus(status)
	filing.FilingNumber = number.String
	if filedAt.Valid {
		at := filedAt.Time
		filing.FiledAt = &at
	}
	if len(classification) > 0 {
		filing.Classification = &domain.ClassificationInput{}
		if err := json.Unmarshal(classification, filing.Classification); err != nil {
			return domain.Filing{}, fmt.Errorf("unmarshal classification: %w", err)
		}
	}
	return filing, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
