package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type TemplateRepository struct {
	db *sql.DB
}

var _ ports.TemplateRepository = (*TemplateRepository)(nil)

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, code, name, description, field_schema, file_rules, applicable_tracks, risk_tier,
	required, display_order, version, active, created_by, created_at, updated_at`

func (r *TemplateRepository) Create(ctx context.Context, tpl *domain.DocumentTemplate) error {
	schema, rules, tracks, err := marshalTemplate(tpl)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO document_templates (
	id, code, name, description, field_schema, file_rules, applicable_tracks, risk_tier, risk_tier_rank,
	required, display_order, version, active, created_by, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		tpl.ID, tpl.Code, tpl.Name, tpl.Description, schema, rules, tracks, string(tpl.RiskTier), tpl.RiskTier.Rank(),
		tpl.Required, tpl.DisplayOrder, tpl.Version, tpl.Active, tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt,
	)
	return mapError("insert template", err)
}

func (r *TemplateRepository) Update(ctx context.Context, tpl *domain.DocumentTemplate) error {
	schema, rules, tracks, err := marshalTemplate(tpl)
	if err != nil {
		return err
	}
	err = execExpectOne(ctx, r.db, `
UPDATE document_templates
SET code = $2, name = $3, description = $4, field_schema = $5, file_rules = $6, applicable_tracks = $7,
	risk_tier = $8, risk_tier_rank = $9, required = $10, display_order = $11, version = $12, active = $13,
	updated_at = $14
WHERE id = $1
`,
		tpl.ID, tpl.Code, tpl.Name, tpl.Description, schema, rules, tracks,
		string(tpl.RiskTier), tpl.RiskTier.Rank(), tpl.Required, tpl.DisplayOrder, tpl.Version, tpl.Active,
		tpl.UpdatedAt,
	)
	return mapError("update template "+tpl.Code, err)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*domain.DocumentTemplate, error) {
	tpl, err := queryOne(ctx, r.db, `SELECT `+templateColumns+` FROM document_templates WHERE id = $1`, []any{id}, scanTemplate)
	if err != nil {
		return nil, mapError("get template "+id, err)
	}
	return &tpl, nil
}

func (r *TemplateRepository) GetActiveByCode(ctx context.Context, code string) (*domain.DocumentTemplate, error) {
	tpl, err := queryOne(ctx, r.db, `SELECT `+templateColumns+` FROM document_templates WHERE code = $1 AND active`, []any{code}, scanTemplate)
	if err != nil {
		return nil, mapError("get template "+code, err)
	}
	return &tpl, nil
}

// FindActive filters on the JSONB track list; tier filtering keeps untiered (rank 0) rows.
func (r *TemplateRepository) FindActive(ctx context.Context, q ports.TemplateQuery) ([]domain.DocumentTemplate, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + templateColumns + `
FROM document_templates
WHERE active AND applicable_tracks @> jsonb_build_array($1::text)`)
	args := []any{string(q.Track)}
	if q.RequiredOnly {
		b.WriteString("\n\tAND required")
	}
	if q.MaxTierRank > 0 {
		args = append(args, q.MaxTierRank)
		fmt.Fprintf(&b, "\n\tAND risk_tier_rank <= $%d", len(args))
	}
	b.WriteString("\nORDER BY display_order, code")

	out, err := queryMany(ctx, r.db, b.String(), args, scanTemplate)
	if err != nil {
		return nil, mapError("find templates", err)
	}
	return out, nil
}

func marshalTemplate(tpl *domain.DocumentTemplate) (schema, rules, tracks []byte, err error) {
	fields := tpl.FieldSchema
	if fields == nil {
		fields = domain.FieldSchema{}
	}
	if schema, err = json.Marshal(fields); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal field schema: %w", err)
	}
	if rules, err = json.Marshal(tpl.FileRules); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal file rules: %w", err)
	}
	if tracks, err = json.Marshal(tpl.ApplicableTracks); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal tracks: %w", err)
	}
	return schema, rules, tracks, nil
}

func scanTemplate(row scanner) (domain.DocumentTemplate, error) {
	var (
		tpl                  domain.DocumentTemplate
		schema, rules, track []byte
		tier                 string
	)
	err := row.Scan(
		&tpl.ID, &tpl.Code, &tpl.Name, &tpl.Description, &schema, &rules, &track, &tier,
		&tpl.Required, &tpl.DisplayOrder, &tpl.Version, &tpl.Active, &tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentTemplate{}, err
	}
	if err := json.Unmarshal(schema, &tpl.FieldSchema); err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("unmarshal field schema: %w", err)
	}
	if err := json.Unmarshal(rules, &tpl.FileRules); err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("unmarshal file rules: %w", err)
	}
	if err := json.Unmarshal(track, &tpl.ApplicableTracks); err != nil {
		return domain.DocumentTemplate{}, fmt.Errorf("unmarshal tracks: %w", err)
	}
	tpl.RiskTier = domain.RiskTier(tier)
	return tpl, nil
}
