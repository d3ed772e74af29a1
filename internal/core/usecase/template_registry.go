package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type TemplateRegistryUseCase struct {
	repo ports.TemplateRepository

	// writes are serialized so the active-code check and the write are atomic in-process;
	// the repository's unique index covers other processes.
	writeMu sync.Mutex
	now     func() time.Time
}

func NewTemplateRegistryUseCase(repo ports.TemplateRepository) *TemplateRegistryUseCase {
	return &TemplateRegistryUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (uc *TemplateRegistryUseCase) Create(ctx context.Context, tpl domain.DocumentTemplate) (*domain.DocumentTemplate, error) {
	tpl.Code = normalizeCode(tpl.Code)
	if err := validateTemplate(&tpl); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidData, "create template", err)
	}

	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()

	if err := uc.ensureCodeFree(ctx, tpl.Code, ""); err != nil {
		return nil, err
	}

	now := uc.now()
	tpl.ID = uuid.NewString()
	tpl.Version = 1
	tpl.Active = true
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	if err := uc.repo.Create(ctx, &tpl); err != nil {
		return nil, fmt.Errorf("create template %s: %w", tpl.Code, err)
	}
	return &tpl, nil
}

// Update applies a partial edit. Changing the field schema, the file rules or the
// required flag bumps the version; other metadata edits keep it.
func (uc *TemplateRegistryUseCase) Update(ctx context.Context, code string, patch domain.TemplatePatch) (*domain.DocumentTemplate, error) {
	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()

	current, err := uc.repo.GetActiveByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	next := *current

	if patch.Code != nil {
		next.Code = normalizeCode(*patch.Code)
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.ApplicableTracks != nil {
		next.ApplicableTracks = patch.ApplicableTracks
	}
	if patch.RiskTier != nil {
		next.RiskTier = *patch.RiskTier
	}
	if patch.DisplayOrder != nil {
		next.DisplayOrder = *patch.DisplayOrder
	}

	contentChanged := false
	if patch.FieldSchema != nil && !reflect.DeepEqual(*patch.FieldSchema, current.FieldSchema) {
		next.FieldSchema = *patch.FieldSchema
		contentChanged = true
	}
	if patch.FileRules != nil && !reflect.DeepEqual(*patch.FileRules, current.FileRules) {
		next.FileRules = *patch.FileRules
		contentChanged = true
	}
	if patch.Required != nil && *patch.Required != current.Required {
		next.Required = *patch.Required
		contentChanged = true
	}

	if err := validateTemplate(&next); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidData, "update template", err)
	}
	if next.Code != current.Code {
		if err := uc.ensureCodeFree(ctx, next.Code, current.ID); err != nil {
			return nil, err
		}
	}
	if contentChanged {
		next.Version = current.Version + 1
	}
	next.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update template %s: %w", current.Code, err)
	}
	return &next, nil
}

func (uc *TemplateRegistryUseCase) Deactivate(ctx context.Context, code string) error {
	uc.writeMu.Lock()
	defer uc.writeMu.Unlock()

	current, err := uc.repo.GetActiveByCode(ctx, normalizeCode(code))
	if err != nil {
		return err
	}
	current.Active = false
	current.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, current); err != nil {
		return fmt.Errorf("deactivate template %s: %w", current.Code, err)
	}
	return nil
}

func (uc *TemplateRegistryUseCase) Get(ctx context.Context, code string) (*domain.DocumentTemplate, error) {
	return uc.repo.GetActiveByCode(ctx, normalizeCode(code))
}

func (uc *TemplateRegistryUseCase) FindApplicable(ctx context.Context, track domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	if !track.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "find applicable templates", "unknown track %q", track)
	}
	return uc.repo.FindActive(ctx, ports.TemplateQuery{Track: track})
}

func (uc *TemplateRegistryUseCase) FindRequired(ctx context.Context, track domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	if !track.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "find required templates", "unknown track %q", track)
	}
	return uc.repo.FindActive(ctx, ports.TemplateQuery{Track: track, RequiredOnly: true})
}

// FindByTrackAndRiskTier accumulates tiers: asking for IIA yields I and IIA,
// asking for III yields every tier. Untiered templates are always included.
func (uc *TemplateRegistryUseCase) FindByTrackAndRiskTier(ctx context.Context, track domain.ProcedureTrack, tier domain.RiskTier) ([]domain.DocumentTemplate, error) {
	if !track.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "find templates by tier", "unknown track %q", track)
	}
	if tier.Rank() == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "find templates by tier", "unknown risk tier %q", tier)
	}
	return uc.repo.FindActive(ctx, ports.TemplateQuery{Track: track, MaxTierRank: tier.Rank()})
}

func (uc *TemplateRegistryUseCase) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := uc.repo.GetActiveByCode(ctx, code)
	switch {
	case err == nil && existing.ID != selfID:
		return domain.NewError(domain.ErrAlreadyExists, "template code", "code %s is held by an active template", code)
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check template code %s: %w", code, err)
	}
}

func validateTemplate(tpl *domain.DocumentTemplate) error {
	if tpl.Code == "" {
		return fmt.Errorf("code is required")
	}
	if strings.TrimSpace(tpl.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(tpl.ApplicableTracks) == 0 {
		return fmt.Errorf("at least one applicable track is required")
	}
	for _, track := range tpl.ApplicableTracks {
		if !track.Valid() {
			return fmt.Errorf("unknown track %q", track)
		}
	}
	if !tpl.RiskTier.Valid() {
		return fmt.Errorf("unknown risk tier %q", tpl.RiskTier)
	}
	if len(tpl.FieldSchema) == 0 && !tpl.FileRules.RequiredFile {
		return fmt.Errorf("field schema must not be empty unless the template requires a file")
	}
	if err := tpl.FieldSchema.Validate(); err != nil {
		return fmt.Errorf("field schema: %w", err)
	}
	if err := tpl.FileRules.Validate(); err != nil {
		return fmt.Errorf("file rules: %w", err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
