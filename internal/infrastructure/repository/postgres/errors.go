package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	constraintActiveFiling = "uq_filings_active_product_track"
)

// mapError translates driver errors into domain kinds. The active-filing index
// maps to DuplicateFiling; every other unique index maps to AlreadyExists.
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.ErrNotFound, operation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == constraintActiveFiling {
				return domain.WrapError(domain.ErrDuplicateFiling, operation, err)
			}
			return domain.WrapError(domain.ErrAlreadyExists, operation, err)
		case pgForeignKeyViolation:
			return domain.WrapError(domain.ErrNotFound, operation, err)
		}
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
