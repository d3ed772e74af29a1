package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaLockID = int64(2026101801)

// EnsureSchema creates the tables and indexes if missing. The advisory lock
// serializes concurrent api and worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS document_templates (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	field_schema JSONB NOT NULL DEFAULT '[]'::jsonb,
	file_rules JSONB NOT NULL DEFAULT '{}'::jsonb,
	applicable_tracks JSONB NOT NULL DEFAULT '[]'::jsonb,
	risk_tier TEXT NOT NULL DEFAULT '',
	risk_tier_rank INTEGER NOT NULL DEFAULT 0,
	required BOOLEAN NOT NULL DEFAULT FALSE,
	display_order INTEGER NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 1,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_document_templates_active_code ON document_templates(code) WHERE active;
CREATE INDEX IF NOT EXISTS idx_document_templates_tracks ON document_templates USING GIN (applicable_tracks);

CREATE TABLE IF NOT EXISTS filings (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	owner_entity TEXT NOT NULL,
	track TEXT NOT NULL,
	classification JSONB,
	status TEXT NOT NULL,
	filing_number TEXT,
	payment_id TEXT NOT NULL DEFAULT '',
	filed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_filings_number ON filings(filing_number) WHERE filing_number IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_filings_active_product_track ON filings(product_id, track)
	WHERE status NOT IN ('DRAFT', 'REJECTED');

CREATE TABLE IF NOT EXISTS document_instances (
	id TEXT PRIMARY KEY,
	filing_id TEXT NOT NULL REFERENCES filings(id) ON DELETE CASCADE,
	template_id TEXT NOT NULL REFERENCES document_templates(id),
	template_code TEXT NOT NULL,
	template_version INTEGER NOT NULL,
	status TEXT NOT NULL,
	filled_data JSONB NOT NULL DEFAULT '{}'::jsonb,
	files JSONB NOT NULL DEFAULT '[]'::jsonb,
	artifact JSONB,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT uq_document_instances_filing_template UNIQUE (filing_id, template_id)
);

CREATE INDEX IF NOT EXISTS idx_document_instances_filing ON document_instances(filing_id);

CREATE TABLE IF NOT EXISTS payments (
	id TEXT PRIMARY KEY,
	owner_entity TEXT NOT NULL,
	filing_id TEXT NOT NULL DEFAULT '',
	amount_cop BIGINT NOT NULL,
	method TEXT NOT NULL DEFAULT '',
	reference TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
