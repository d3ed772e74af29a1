package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/sanitary-filing/internal/config"
	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/usecase"
)

type templatesFake struct {
	err      error
	lastCall string
}

func (f *templatesFake) Create(_ context.Context, tpl domain.DocumentTemplate) (*domain.DocumentTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	tpl.ID, tpl.Version, tpl.Active = "tpl-1", 1, true
	return &tpl, nil
}

func (f *templatesFake) Update(_ context.Context, code string, _ domain.TemplatePatch) (*domain.DocumentTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentTemplate{Code: code, Version: 2}, nil
}

func (f *templatesFake) Deactivate(context.Context, string) error { return f.err }

func (f *templatesFake) Get(_ context.Context, code string) (*domain.DocumentTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentTemplate{Code: code}, nil
}

func (f *templatesFake) FindApplicable(context.Context, domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	f.lastCall = "applicable"
	return []domain.DocumentTemplate{}, f.err
}

func (f *templatesFake) FindRequired(context.Context, domain.ProcedureTrack) ([]domain.DocumentTemplate, error) {
	f.lastCall = "required"
	return []domain.DocumentTemplate{}, f.err
}

func (f *templatesFake) FindByTrackAndRiskTier(_ context.Context, _ domain.ProcedureTrack, tier domain.RiskTier) ([]domain.DocumentTemplate, error) {
	f.lastCall = "tier:" + string(tier)
	return []domain.DocumentTemplate{}, f.err
}

type documentsFake struct {
	err      error
	uploaded []domain.FileUpload
}

func (f *documentsFake) instance(id string) (*domain.DocumentInstance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentInstance{ID: id, Status: domain.InstanceDraft}, nil
}

func (f *documentsFake) Create(_ context.Context, filingID, code string, _ map[string]any) (*domain.DocumentInstance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.DocumentInstance{ID: "inst-1", FilingID: filingID, TemplateCode: code, Status: domain.InstanceDraft}, nil
}

func (f *documentsFake) Get(_ context.Context, id string) (*domain.DocumentInstance, error) {
	return f.instance(id)
}

func (f *documentsFake) ListByFiling(context.Context, string) ([]domain.DocumentInstance, error) {
	return []domain.DocumentInstance{}, f.err
}

func (f *documentsFake) FillData(_ context.Context, id string, _ map[string]any) (*domain.DocumentInstance, error) {
	return f.instance(id)
}

func (f *documentsFake) UploadFiles(_ context.Context, id string, files []domain.FileUpload) (*domain.DocumentInstance, error) {
	f.uploaded = files
	return f.instance(id)
}

func (f *documentsFake) Verify(_ context.Context, id string) (*domain.DocumentInstance, error) {
	return f.instance(id)
}

func (f *documentsFake) Finalize(_ context.Context, id string) (*domain.DocumentInstance, error) {
	return f.instance(id)
}

func (f *documentsFake) Delete(context.Context, string) error { return f.err }

type completenessFake struct {
	err error
}

func (f completenessFake) Summarize(_ context.Context, id string) (*domain.CompletenessSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CompletenessSummary{FilingID: id, Track: domain.TrackNSO}, nil
}

func (f completenessFake) ExportChecklist(_ context.Context, _ string, w io.Writer) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.WriteString(w, "xlsx-bytes")
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
}

type filingsFake struct {
	err       error
	submitted domain.SubmitFilingRequest
}

func (f *filingsFake) Open(_ context.Context, req domain.OpenFilingRequest) (*domain.Filing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Filing{ID: "filing-1", ProductID: req.ProductID, Status: domain.FilingDraft}, nil
}

func (f *filingsFake) Get(_ context.Context, id string) (*domain.Filing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Filing{ID: id, Status: domain.FilingDraft}, nil
}

func (f *filingsFake) Submit(_ context.Context, req domain.SubmitFilingRequest) (*domain.SubmitFilingResult, error) {
	f.submitted = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SubmitFilingResult{FilingID: req.FilingID, FilingNumber: "INV-1", Status: domain.FilingFiled}, nil
}

func (f *filingsFake) Delete(context.Context, string) error { return f.err }

type paymentsFake struct {
	err error
}

func (f paymentsFake) Register(_ context.Context, p domain.Payment) (*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	p.ID, p.Status = "pay-1", domain.PaymentPending
	return &p, nil
}

func (f paymentsFake) Get(_ context.Context, id string) (*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Payment{ID: id, Status: domain.PaymentPending}, nil
}

func (f paymentsFake) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) (*domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Payment{ID: id, Status: status}, nil
}

type healthFake struct {
	healthy bool
}

func (f healthFake) Health(context.Context) (bool, map[string]any) {
	return f.healthy, map[string]any{"bus": f.healthy}
}

type testDeps struct {
	templates *templatesFake
	documents *documentsFake
	filings   *filingsFake
}

func newTestRouter(cfg config.Config, mutate ...func(*Dependencies)) (http.Handler, testDeps) {
	td := testDeps{
		templates: &templatesFake{},
		documents: &documentsFake{},
		filings:   &filingsFake{},
	}
	deps := Dependencies{
		Classifier:   usecase.NewClassificationUseCase(),
		Templates:    td.templates,
		Documents:    td.documents,
		Completeness: completenessFake{},
		Filings:      td.filings,
		Payments:     paymentsFake{},
	}
	for _, m := range mutate {
		m(&deps)
	}
	return NewRouter(cfg, deps).Handler(), td
}
