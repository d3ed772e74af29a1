package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type templateRepoFake struct {
	mu    sync.Mutex
	byID  map[string]domain.DocumentTemplate
	order []string
}

func newTemplateRepoFake(templates ...domain.DocumentTemplate) *templateRepoFake {
	f := &templateRepoFake{byID: map[string]domain.DocumentTemplate{}}
	for _, tpl := range templates {
		if tpl.ID == "" {
			tpl.ID = "tpl-" + tpl.Code
		}
		if tpl.Version == 0 {
			tpl.Version = 1
		}
		tpl.Active = true
		f.byID[tpl.ID] = tpl
		f.order = append(f.order, tpl.ID)
	}
	return f
}

func (f *templateRepoFake) Create(_ context.Context, tpl *domain.DocumentTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[tpl.ID] = *tpl
	f.order = append(f.order, tpl.ID)
	return nil
}

func (f *templateRepoFake) Update(_ context.Context, tpl *domain.DocumentTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[tpl.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[tpl.ID] = *tpl
	return nil
}

func (f *templateRepoFake) GetByID(_ context.Context, id string) (*domain.DocumentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tpl, nil
}

func (f *templateRepoFake) GetActiveByCode(_ context.Context, code string) (*domain.DocumentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		tpl := f.byID[id]
		if tpl.Active && tpl.Code == code {
			return &tpl, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *templateRepoFake) FindActive(_ context.Context, q ports.TemplateQuery) ([]domain.DocumentTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.DocumentTemplate{}
	for _, id := range f.order {
		tpl := f.byID[id]
		if !tpl.Active || !tpl.AppliesTo(q.Track) {
			continue
		}
		if q.RequiredOnly && !tpl.Required {
			continue
		}
		if q.MaxTierRank > 0 && tpl.RiskTier.Rank() > q.MaxTierRank {
			continue
		}
		out = append(out, tpl)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

type instanceRepoFake struct {
	mu        sync.Mutex
	byID      map[string]domain.DocumentInstance
	updateErr error
	updates   int
}

func newInstanceRepoFake() *instanceRepoFake {
	return &instanceRepoFake{byID: map[string]domain.DocumentInstance{}}
}

func (f *instanceRepoFake) Create(_ context.Context, inst *domain.DocumentInstance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.FilingID == inst.FilingID && existing.TemplateID == inst.TemplateID {
			return domain.ErrAlreadyExists
		}
	}
	f.byID[inst.ID] = *inst
	return nil
}

func (f *instanceRepoFake) GetByID(_ context.Context, id string) (*domain.DocumentInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &inst, nil
}

func (f *instanceRepoFake) ListByFiling(_ context.Context, filingID string) ([]domain.DocumentInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.DocumentInstance{}
	for _, inst := range f.byID {
		if inst.FilingID == filingID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateCode < out[j].TemplateCode })
	return out, nil
}

func (f *instanceRepoFake) Update(_ context.Context, inst *domain.DocumentInstance, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	current, ok := f.byID[inst.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrInvalidTransition
	}
	f.byID[inst.ID] = *inst
	f.updates++
	return nil
}

func (f *instanceRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *instanceRepoFake) put(inst domain.DocumentInstance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[inst.ID] = inst
}

type filingRepoFake struct {
	mu      sync.Mutex
	byID    map[string]domain.Filing
	numbers map[string]bool
	markErr []error
	marked  int
}

func newFilingRepoFake(filings ...domain.Filing) *filingRepoFake {
	f := &filingRepoFake{byID: map[string]domain.Filing{}, numbers: map[string]bool{}}
	for _, filing := range filings {
		f.byID[filing.ID] = filing
	}
	return f
}

func (f *filingRepoFake) Create(_ context.Context, filing *domain.Filing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[filing.ID] = *filing
	return nil
}

func (f *filingRepoFake) GetByID(_ context.Context, id string) (*domain.Filing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filing, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &filing, nil
}

func (f *filingRepoFake) ExistsActive(_ context.Context, productID string, track domain.ProcedureTrack) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, filing := range f.byID {
		if filing.ProductID == productID && filing.Track == track && filing.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (f *filingRepoFake) ExistsByNumber(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numbers[number], nil
}

func (f *filingRepoFake) MarkFiled(_ context.Context, id, number, paymentID string, filedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.markErr) > 0 {
		err := f.markErr[0]
		f.markErr = f.markErr[1:]
		if err != nil {
			return err
		}
	}
	filing, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if filing.Status != domain.FilingDraft || filing.FilingNumber != "" {
		return domain.ErrInvalidTransition
	}
	filing.Status = domain.FilingFiled
	filing.FilingNumber = number
	filing.PaymentID = paymentID
	filing.FiledAt = &filedAt
	f.byID[id] = filing
	f.numbers[number] = true
	f.marked++
	return nil
}

func (f *filingRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type paymentRepoFake struct {
	mu   sync.Mutex
	byID map[string]domain.Payment
}

func newPaymentRepoFake(payments ...domain.Payment) *paymentRepoFake {
	f := &paymentRepoFake{byID: map[string]domain.Payment{}}
	for _, p := range payments {
		f.byID[p.ID] = p
	}
	return f
}

func (f *paymentRepoFake) Create(_ context.Context, payment *domain.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[payment.ID] = *payment
	return nil
}

func (f *paymentRepoFake) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *paymentRepoFake) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	f.byID[id] = p
	return nil
}

type storageFake struct {
	mu       sync.Mutex
	files    map[string][]byte
	failOn   int
	stores   int
	deleted  []string
	storeErr error
}

func newStorageFake() *storageFake {
	return &storageFake{files: map[string][]byte{}}
}

func (f *storageFake) Store(_ context.Context, folder, name string, data io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.storeErr != nil && (f.failOn == 0 || f.stores == f.failOn) {
		return "", f.storeErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	key := path.Join(folder, name)
	f.files[key] = raw
	return key, nil
}

func (f *storageFake) Retrieve(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *storageFake) PublicURL(key string) string {
	return "http://files.local/" + key
}

func (f *storageFake) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[key]
	return ok, nil
}

func (f *storageFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type rendererFake struct {
	storage *storageFake
	err     error
	calls   int
}

func (f *rendererFake) Render(ctx context.Context, tpl *domain.DocumentTemplate, inst *domain.DocumentInstance) (*domain.Artifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key, err := f.storage.Store(ctx, path.Join("artifacts", inst.FilingID), tpl.Code+".xlsx", bytes.NewReader([]byte("artifact")))
	if err != nil {
		return nil, err
	}
	return &domain.Artifact{
		StorageKey: key,
		URL:        f.storage.PublicURL(key),
		MIMEType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		SizeBytes:  8,
		RenderedAt: time.Now().UTC(),
	}, nil
}

type fieldValidatorFake struct {
	reject map[string]string
}

func (f fieldValidatorFake) ValidateField(field domain.FieldDefinition, _ any) error {
	if msg, ok := f.reject[field.Key]; ok {
		return errors.New(msg)
	}
	return nil
}

// busFake records published traffic; an attached responder answers requests inline
// on a goroutine, the way a remote module would.
type busFake struct {
	mu         sync.Mutex
	requests   []domain.ValidationRequest
	responses  []domain.ValidationResponse
	publishErr error
	onRequest  func(domain.ValidationRequest)
}

func (b *busFake) PublishValidationRequest(_ context.Context, req domain.ValidationRequest) error {
	b.mu.Lock()
	if b.publishErr != nil {
		b.mu.Unlock()
		return b.publishErr
	}
	b.requests = append(b.requests, req)
	hook := b.onRequest
	b.mu.Unlock()
	if hook != nil {
		go hook(req)
	}
	return nil
}

func (b *busFake) SubscribeValidationRequests(context.Context, func(context.Context, domain.ValidationRequest) error) error {
	return errors.New("not implemented")
}

func (b *busFake) PublishValidationResponse(_ context.Context, resp domain.ValidationResponse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.responses = append(b.responses, resp)
	return nil
}

func (b *busFake) SubscribeValidationResponses(context.Context, func(context.Context, domain.ValidationResponse) error) error {
	return errors.New("not implemented")
}

func (b *busFake) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type observerFake struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *observerFake) ObserveValidation(_ domain.ValidationKind, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *observerFake) ObserveSubmission(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *observerFake) seen() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

func textTemplate(code string, required bool, tracks ...domain.ProcedureTrack) domain.DocumentTemplate {
	return domain.DocumentTemplate{
		ID:   "tpl-" + code,
		Code: code,
		Name: code,
		FieldSchema: domain.FieldSchema{
			{Key: "name", Label: "Name", Kind: domain.FieldText, Required: true},
			{Key: "notes", Label: "Notes", Kind: domain.FieldTextArea},
		},
		FileRules:        domain.FileRules{AllowedMIMETypes: []string{"application/pdf"}, MaxSizeBytes: 1024},
		ApplicableTracks: tracks,
		Required:         required,
		Version:          1,
		Active:           true,
	}
}

func fileOnlyTemplate(code string, required bool, tracks ...domain.ProcedureTrack) domain.DocumentTemplate {
	return domain.DocumentTemplate{
		ID:               "tpl-" + code,
		Code:             code,
		Name:             code,
		FileRules:        domain.FileRules{AllowedMIMETypes: []string{"application/pdf"}, MaxSizeBytes: 1024, RequiredFile: true},
		ApplicableTracks: tracks,
		Required:         required,
		Version:          1,
		Active:           true,
	}
}

func draftFiling(id string, track domain.ProcedureTrack) domain.Filing {
	return domain.Filing{
		ID:          id,
		ProductID:   "product-" + id,
		OwnerEntity: "ACME",
		Track:       track,
		Status:      domain.FilingDraft,
	}
}
