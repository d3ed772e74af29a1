package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type CompletenessUseCase struct {
	filings   ports.FilingRepository
	templates ports.TemplateRepository
	instances ports.InstanceRepository
	exporter  ports.ChecklistExporter
}

func NewCompletenessUseCase(
	filings ports.FilingRepository,
	templates ports.TemplateRepository,
	instances ports.InstanceRepository,
	exporter ports.ChecklistExporter,
) *CompletenessUseCase {
	return &CompletenessUseCase{
		filings:   filings,
		templates: templates,
		instances: instances,
		exporter:  exporter,
	}
}

// Summarize reconciles the track's templates against the filing's FINALIZED
// instances. Only reads; safe to call any number of times.
func (uc *CompletenessUseCase) Summarize(ctx context.Context, filingID string) (*domain.CompletenessSummary, error) {
	filing, err := uc.filings.GetByID(ctx, filingID)
	if err != nil {
		return nil, err
	}
	applicable, err := uc.templates.FindActive(ctx, ports.TemplateQuery{Track: filing.Track})
	if err != nil {
		return nil, fmt.Errorf("load applicable templates: %w", err)
	}
	instances, err := uc.instances.ListByFiling(ctx, filing.ID)
	if err != nil {
		return nil, fmt.Errorf("load filing instances: %w", err)
	}
	return summarize(filing, applicable, instances), nil
}

func (uc *CompletenessUseCase) ExportChecklist(ctx context.Context, filingID string, w io.Writer) (string, error) {
	if uc.exporter == nil {
		return "", domain.NewError(domain.ErrInvalidInput, "export checklist", "no checklist exporter configured")
	}
	summary, err := uc.Summarize(ctx, filingID)
	if err != nil {
		return "", err
	}
	if err := uc.exporter.ExportChecklist(ctx, summary, w); err != nil {
		return "", domain.WrapError(domain.ErrRenderingFailed, "export checklist", err)
	}
	return uc.exporter.ContentType(), nil
}

func summarize(filing *domain.Filing, applicable []domain.DocumentTemplate, instances []domain.DocumentInstance) *domain.CompletenessSummary {
	finalized := make(map[string]bool, len(instances))
	for _, inst := range instances {
		if inst.Status == domain.InstanceFinalized {
			finalized[inst.TemplateID] = true
		}
	}

	summary := &domain.CompletenessSummary{
		FilingID:          filing.ID,
		Track:             filing.Track,
		MissingRequired:   []domain.TemplateRef{},
		AvailableOptional: []domain.TemplateRef{},
	}
	for _, tpl := range applicable {
		ref := domain.TemplateRef{ID: tpl.ID, Code: tpl.Code, Name: tpl.Name}
		done := finalized[tpl.ID]
		if tpl.Required {
			summary.TotalRequired++
			if done {
				summary.CompletedRequired++
			} else {
				summary.MissingRequired = append(summary.MissingRequired, ref)
			}
			continue
		}
		summary.TotalOptional++
		if done {
			summary.CompletedOptional++
		} else {
			summary.AvailableOptional = append(summary.AvailableOptional, ref)
		}
	}

	summary.Percent = completionPercent(summary.CompletedRequired, summary.TotalRequired)
	summary.AllRequiredComplete = summary.CompletedRequired == summary.TotalRequired
	return summary
}

func completionPercent(completed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(completed*100) / float64(total)
}
