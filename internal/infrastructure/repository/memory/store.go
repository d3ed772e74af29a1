// Package memory keeps every repository in process memory. It backs local runs
// and end-to-end tests and enforces the same uniqueness rules as the postgres
// schema.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

// Store shares one lock across the repositories so a filing delete can cascade
// to its instances.
type Store struct {
	mu        sync.RWMutex
	templates map[string]domain.DocumentTemplate
	instances map[string]domain.DocumentInstance
	filings   map[string]domain.Filing
	payments  map[string]domain.Payment
}

func NewStore() *Store {
	return &Store{
		templates: make(map[string]domain.DocumentTemplate),
		instances: make(map[string]domain.DocumentInstance),
		filings:   make(map[string]domain.Filing),
		payments:  make(map[string]domain.Payment),
	}
}

func (s *Store) Templates() *TemplateRepository { return &TemplateRepository{s: s} }
func (s *Store) Instances() *InstanceRepository { return &InstanceRepository{s: s} }
func (s *Store) Filings() *FilingRepository     { return &FilingRepository{s: s} }
func (s *Store) Payments() *PaymentRepository   { return &PaymentRepository{s: s} }

type TemplateRepository struct{ s *Store }

var _ ports.TemplateRepository = (*TemplateRepository)(nil)

func (r *TemplateRepository) Create(_ context.Context, tpl *domain.DocumentTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[tpl.ID]; ok {
		return domain.NewError(domain.ErrAlreadyExists, "insert template", "template %s already exists", tpl.ID)
	}
	if err := r.s.checkActiveCode(tpl); err != nil {
		return err
	}
	r.s.templates[tpl.ID] = cloneTemplate(*tpl)
	return nil
}

func (r *TemplateRepository) Update(_ context.Context, tpl *domain.DocumentTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[tpl.ID]; !ok {
		return domain.NewError(domain.ErrNotFound, "update template", "template %s not found", tpl.ID)
	}
	if err := r.s.checkActiveCode(tpl); err != nil {
		return err
	}
	r.s.templates[tpl.ID] = cloneTemplate(*tpl)
	return nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*domain.DocumentTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tpl, ok := r.s.templates[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get template", "template %s not found", id)
	}
	out := cloneTemplate(tpl)
	return &out, nil
}

func (r *TemplateRepository) GetActiveByCode(_ context.Context, code string) (*domain.DocumentTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, tpl := range r.s.templates {
		if tpl.Active && tpl.Code == code {
			out := cloneTemplate(tpl)
			return &out, nil
		}
	}
	return nil, domain.NewError(domain.ErrNotFound, "get template", "no active template with code %s", code)
}

func (r *TemplateRepository) FindActive(_ context.Context, q ports.TemplateQuery) ([]domain.DocumentTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.DocumentTemplate, 0)
	for _, tpl := range r.s.templates {
		if !tpl.Active || !tpl.AppliesTo(q.Track) {
			continue
		}
		if q.RequiredOnly && !tpl.Required {
			continue
		}
		if q.MaxTierRank > 0 && tpl.RiskTier.Rank() > q.MaxTierRank {
			continue
		}
		out = append(out, cloneTemplate(tpl))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// checkActiveCode must be called with the write lock held.
func (s *Store) checkActiveCode(tpl *domain.DocumentTemplate) error {
	if !tpl.Active {
		return nil
	}
	for id, existing := range s.templates {
		if id != tpl.ID && existing.Active && existing.Code == tpl.Code {
			return domain.NewError(domain.ErrAlreadyExists, "save template", "code %s is held by template %s", tpl.Code, id)
		}
	}
	return nil
}

type InstanceRepository struct{ s *Store }

var _ ports.InstanceRepository = (*InstanceRepository)(nil)

func (r *InstanceRepository) Create(_ context.Context, inst *domain.DocumentInstance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.filings[inst.FilingID]; !ok {
		return domain.NewError(domain.ErrNotFound, "insert instance", "filing %s not found", inst.FilingID)
	}
	for _, existing := range r.s.instances {
		if existing.ID == inst.ID || (existing.FilingID == inst.FilingID && existing.TemplateID == inst.TemplateID) {
			return domain.NewError(domain.ErrAlreadyExists, "insert instance",
				"filing %s already has an instance of template %s", inst.FilingID, inst.TemplateCode)
		}
	}
	r.s.instances[inst.ID] = cloneInstance(*inst)
	return nil
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*domain.DocumentInstance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inst, ok := r.s.instances[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get instance", "instance %s not found", id)
	}
	out := cloneInstance(inst)
	return &out, nil
}

func (r *InstanceRepository) ListByFiling(_ context.Context, filingID string) ([]domain.DocumentInstance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.DocumentInstance, 0)
	for _, inst := range r.s.instances {
		if inst.FilingID == filingID {
			out = append(out, cloneInstance(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TemplateCode < out[j].TemplateCode
	})
	return out, nil
}

func (r *InstanceRepository) Update(_ context.Context, inst *domain.DocumentInstance, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.instances[inst.ID]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "update instance", "instance %s not found", inst.ID)
	}
	if current.Version != expectedVersion {
		return domain.NewError(domain.ErrInvalidTransition, "update instance",
			"instance %s changed concurrently (version %d, expected %d)", inst.ID, current.Version, expectedVersion)
	}
	r.s.instances[inst.ID] = cloneInstance(*inst)
	return nil
}

func (r *InstanceRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.instances[id]; !ok {
		return domain.NewError(domain.ErrNotFound, "delete instance", "instance %s not found", id)
	}
	delete(r.s.instances, id)
	return nil
}

type FilingRepository struct{ s *Store }

var _ ports.FilingRepository = (*FilingRepository)(nil)

func (r *FilingRepository) Create(_ context.Context, filing *domain.Filing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.filings[filing.ID]; ok {
		return domain.NewError(domain.ErrAlreadyExists, "insert filing", "filing %s already exists", filing.ID)
	}
	if filing.Status.Active() && r.s.activeSibling(filing.ID, filing.ProductID, filing.Track) {
		return domain.NewError(domain.ErrDuplicateFiling, "insert filing",
			"product %s already has an active %s filing", filing.ProductID, filing.Track)
	}
	r.s.filings[filing.ID] = cloneFiling(*filing)
	return nil
}

func (r *FilingRepository) GetByID(_ context.Context, id string) (*domain.Filing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	filing, ok := r.s.filings[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get filing", "filing %s not found", id)
	}
	out := cloneFiling(filing)
	return &out, nil
}

func (r *FilingRepository) ExistsActive(_ context.Context, productID string, track domain.ProcedureTrack) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.activeSibling("", productID, track), nil
}

func (r *FilingRepository) ExistsByNumber(_ context.Context, number string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.numberTaken(number), nil
}

func (r *FilingRepository) MarkFiled(_ context.Context, id, number, paymentID string, filedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	filing, ok := r.s.filings[id]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "mark filing filed", "filing %s not found", id)
	}
	if filing.Status != domain.FilingDraft || filing.FilingNumber != "" {
		return domain.NewError(domain.ErrInvalidTransition, "mark filing filed", "filing %s is no longer a draft", id)
	}
	if r.s.numberTaken(number) {
		return domain.NewError(domain.ErrAlreadyExists, "mark filing filed", "filing number %s is taken", number)
	}
	if r.s.activeSibling(id, filing.ProductID, filing.Track) {
		return domain.NewError(domain.ErrDuplicateFiling, "mark filing filed",
			"product %s already has an active %s filing", filing.ProductID, filing.Track)
	}
	at := filedAt
	filing.Status = domain.FilingFiled
	filing.FilingNumber = number
	filing.PaymentID = paymentID
	filing.FiledAt = &at
	filing.UpdatedAt = filedAt
	r.s.filings[id] = filing
	return nil
}

func (r *FilingRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.filings[id]; !ok {
		return domain.NewError(domain.ErrNotFound, "delete filing", "filing %s not found", id)
	}
	delete(r.s.filings, id)
	for instID, inst := range r.s.instances {
		if inst.FilingID == id {
			delete(r.s.instances, instID)
		}
	}
	return nil
}

func (s *Store) activeSibling(exceptID, productID string, track domain.ProcedureTrack) bool {
	for id, f := range s.filings {
		if id != exceptID && f.ProductID == productID && f.Track == track && f.Status.Active() {
			return true
		}
	}
	return false
}

func (s *Store) numberTaken(number string) bool {
	for _, f := range s.filings {
		if f.FilingNumber == number {
			return true
		}
	}
	return false
}

type PaymentRepository struct{ s *Store }

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; ok {
		return domain.NewError(domain.ErrAlreadyExists, "insert payment", "payment %s already exists", payment.ID)
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	payment, ok := r.s.payments[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "get payment", "payment %s not found", id)
	}
	return &payment, nil
}

func (r *PaymentRepository) UpdateStatus(_ context.Context, id string, status domain.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	payment, ok := r.s.payments[id]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "update payment", "payment %s not found", id)
	}
	payment.Status = status
	payment.UpdatedAt = time.Now().UTC()
	r.s.payments[id] = payment
	return nil
}

func cloneTemplate(tpl domain.DocumentTemplate) domain.DocumentTemplate {
	tpl.FieldSchema = slices.Clone(tpl.FieldSchema)
	tpl.FileRules.AllowedMIMETypes = slices.Clone(tpl.FileRules.AllowedMIMETypes)
	tpl.ApplicableTracks = slices.Clone(tpl.ApplicableTracks)
	return tpl
}

func cloneInstance(inst domain.DocumentInstance) domain.DocumentInstance {
	inst.FilledData = maps.Clone(inst.FilledData)
	inst.Files = slices.Clone(inst.Files)
	if inst.Artifact != nil {
		artifact := *inst.Artifact
		inst.Artifact = &artifact
	}
	return inst
}

func cloneFiling(f domain.Filing) domain.Filing {
	if f.Classification != nil {
		c := *f.Classification
		f.Classification = &c
	}
	if f.FiledAt != nil {
		at := *f.FiledAt
		f.FiledAt = &at
	}
	return f
}
