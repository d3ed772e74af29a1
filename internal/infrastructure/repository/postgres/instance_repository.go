package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type InstanceRepository struct {
	db *sql.DB
}

var _ ports.InstanceRepository = (*InstanceRepository)(nil)

func NewInstanceRepository(db *sql.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

const instanceColumns = `id, filing_id, template_id, template_code, template_version, status,
	filled_data, files, artifact, version, created_at, updated_at`

func (r *InstanceRepository) Create(ctx context.Context, inst *domain.DocumentInstance) error {
	data, files, artifact, err := marshalInstance(inst)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO document_instances (`+instanceColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		inst.ID, inst.FilingID, inst.TemplateID, inst.TemplateCode, inst.TemplateVersion, string(inst.Status),
		data, files, artifact, inst.Version, inst.CreatedAt, inst.UpdatedAt,
	)
	return mapError("insert instance", err)
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*domain.DocumentInstance, error) {
	inst, err := queryOne(ctx, r.db, `SELECT `+instanceColumns+` FROM document_instances WHERE id = $1`, []any{id}, scanInstance)
	if err != nil {
		return nil, mapError("get instance "+id, err)
	}
	return &inst, nil
}

func (r *InstanceRepository) ListByFiling(ctx context.Context, filingID string) ([]domain.DocumentInstance, error) {
	out, err := queryMany(ctx, r.db, `
SELECT `+instanceColumns+`
FROM document_instances
WHERE filing_id = $1
ORDER BY created_at, template_code
`, []any{filingID}, scanInstance)
	if err != nil {
		return nil, mapError("list instances", err)
	}
	return out, nil
}

// Update writes only when the stored version still equals expectedVersion.
func (r *InstanceRepository) Update(ctx context.Context, inst *domain.DocumentInstance, expectedVersion int) error {
	data, files, artifact, err := marshalInstance(inst)
	if err != nil {
		return err
	}
	err = execExpectOne(ctx, r.db, `
UPDATE document_instances
SET status = $3, filled_data = $4, files = $5, artifact = $6, version = $7, updated_at = $8
WHERE id = $1 AND version = $2
`, inst.ID, expectedVersion, string(inst.Status), data, files, artifact, inst.Version, inst.UpdatedAt)
	if !errors.Is(err, sql.ErrNoRows) {
		return mapError("update instance "+inst.ID, err)
	}

	var current int
	err = r.db.QueryRowContext(ctx, `SELECT version FROM document_instances WHERE id = $1`, inst.ID).Scan(&current)
	if err != nil {
		return mapError("update instance "+inst.ID, err)
	}
	return domain.NewError(domain.ErrInvalidTransition, "update instance",
		"instance %s changed concurrently (version %d, expected %d)", inst.ID, current, expectedVersion)
}

func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	err := execExpectOne(ctx, r.db, `DELETE FROM document_instances WHERE id = $1`, id)
	return mapError("delete instance "+id, err)
}

func marshalInstance(inst *domain.DocumentInstance) (data, files, artifact []byte, err error) {
	filled := inst.FilledData
	if filled == nil {
		filled = map[string]any{}
	}
	if data, err = json.Marshal(filled); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal filled data: %w", err)
	}
	stored := inst.Files
	if stored == nil {
		stored = []domain.StoredFile{}
	}
	if files, err = json.Marshal(stored); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal files: %w", err)
	}
	if inst.Artifact != nil {
		if artifact, err = json.Marshal(inst.Artifact); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal artifact: %w", err)
		}
	}
	return data, files, artifact, nil
}

func scanInstance(row scanner) (domain.DocumentInstance, error) {
	var (
		inst                  domain.DocumentInstance
		status                string
		data, files, artifact []byte
	)
	err := row.Scan(
		&inst.ID, &inst.FilingID, &inst.TemplateID, &inst.TemplateCode, &inst.TemplateVersion, &status,
		&data, &files, &artifact, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentInstance{}, err
	}
	inst.Status = domain.InstanceStatus(status)
	if err := json.Unmarshal(data, &inst.FilledData); err != nil {
		return domain.DocumentInstance{}, fmt.Errorf("unmarshal filled data: %w", err)
	}
	if len(inst.FilledData) == 0 {
		inst.FilledData = nil
	}
	if err := json.Unmarshal(files, &inst.Files); err != nil {
		return domain.DocumentInstance{}, fmt.Errorf("unmarshal files: %w", err)
	}
	if len(artifact) > 0 {
		inst.Artifact = &domain.Artifact{}
		if err := json.Unmarshal(artifact, inst.Artifact); err != nil {
			return domain.DocumentInstance{}, fmt.Errorf("unmarshal artifact: %w", err)
		}
	}
	return inst, nil
}
