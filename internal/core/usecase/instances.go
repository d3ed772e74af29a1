package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

type DocumentInstanceUseCase struct {
	instances ports.InstanceRepository
	templates ports.TemplateRepository
	filings   ports.FilingRepository
	storage   ports.FileStorage
	renderer  ports.Renderer
	fields    ports.FieldValidator
	inspector ports.FileInspector

	now func() time.Time
}

// NewDocumentInstanceUseCase wires the instance manager. fields and inspector are optional;
// without them only required-field presence and file size/type rules are checked.
func NewDocumentInstanceUseCase(
	instances ports.InstanceRepository,
	templates ports.TemplateRepository,
	filings ports.FilingRepository,
	storage ports.FileStorage,
	renderer ports.Renderer,
	fields ports.FieldValidator,
	inspector ports.FileInspector,
) *DocumentInstanceUseCase {
	return &DocumentInstanceUseCase{
		instances: instances,
		templates: templates,
		filings:   filings,
		storage:   storage,
		renderer:  renderer,
		fields:    fields,
		inspector: inspector,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DocumentInstanceUseCase) Create(
	ctx context.Context,
	filingID, templateCode string,
	initialData map[string]any,
) (*domain.DocumentInstance, error) {
	filing, err := uc.editableFiling(ctx, filingID, "create instance")
	if err != nil {
		return nil, err
	}
	tpl, err := uc.templates.GetActiveByCode(ctx, normalizeCode(templateCode))
	if err != nil {
		return nil, err
	}
	if !tpl.AppliesTo(filing.Track) {
		return nil, domain.NewError(domain.ErrInvalidData, "create instance",
			"template %s does not apply to track %s", tpl.Code, filing.Track)
	}
	if len(initialData) > 0 {
		if err := uc.validateData(tpl, initialData); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidData, "create instance", err)
		}
	}

	now := uc.now()
	inst := &domain.DocumentInstance{
		ID:              uuid.NewString(),
		FilingID:        filing.ID,
		TemplateID:      tpl.ID,
		TemplateCode:    tpl.Code,
		TemplateVersion: tpl.Version,
		Status:          domain.InstanceDraft,
		FilledData:      initialData,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.instances.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance for %s/%s: %w", filing.ID, tpl.Code, err)
	}
	return inst, nil
}

func (uc *DocumentInstanceUseCase) Get(ctx context.Context, id string) (*domain.DocumentInstance, error) {
	return uc.instances.GetByID(ctx, id)
}

func (uc *DocumentInstanceUseCase) ListByFiling(ctx context.Context, filingID string) ([]domain.DocumentInstance, error) {
	if _, err := uc.filings.GetByID(ctx, filingID); err != nil {
		return nil, err
	}
	return uc.instances.ListByFiling(ctx, filingID)
}

// FillData validates and stores form data. On any failure the stored instance is untouched.
func (uc *DocumentInstanceUseCase) FillData(ctx context.Context, id string, data map[string]any) (*domain.DocumentInstance, error) {
	inst, tpl, err := uc.load(ctx, id, "fill data")
	if err != nil {
		return nil, err
	}
	if tpl.FileOnly() {
		return inst, nil
	}
	if !domain.CanTransition(inst.Status, domain.InstanceFilled, false) {
		return nil, domain.NewError(domain.ErrInvalidTransition, "fill data",
			"instance %s is %s", inst.ID, inst.Status)
	}
	if err := uc.validateData(tpl, data); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidData, "fill data", err)
	}

	next := *inst
	next.FilledData = data
	next.Status = domain.InstanceFilled
	if err := uc.save(ctx, &next, inst.Version); err != nil {
		return nil, err
	}
	return &next, nil
}

// UploadFiles validates every file before storing any of them. A file-only
// template is finalized by its upload; a schema-backed one moves to UPLOADED.
func (uc *DocumentInstanceUseCase) UploadFiles(ctx context.Context, id string, files []domain.FileUpload) (*domain.DocumentInstance, error) {
	if len(files) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "upload files", "no files supplied")
	}
	inst, tpl, err := uc.load(ctx, id, "upload files")
	if err != nil {
		return nil, err
	}

	target := domain.InstanceUploaded
	if tpl.FileOnly() {
		target = domain.InstanceFinalized
	}
	if !domain.CanTransition(inst.Status, target, tpl.FileOnly()) {
		return nil, domain.NewError(domain.ErrInvalidTransition, "upload files",
			"instance %s is %s", inst.ID, inst.Status)
	}

	for _, file := range files {
		if err := uc.checkFile(tpl.FileRules, file); err != nil {
			return nil, err
		}
	}

	folder := path.Join("documents", inst.FilingID, inst.ID)
	stored := make([]domain.StoredFile, 0, len(files))
	for _, file := range files {
		key, err := uc.storage.Store(ctx, folder, file.FileName, bytes.NewReader(file.Content))
		if err != nil {
			uc.discard(ctx, storedKeys(stored))
			return nil, domain.WrapError(domain.ErrStorageFailure, "upload files", err)
		}
		stored = append(stored, domain.StoredFile{
			StorageKey: key,
			FileName:   file.FileName,
			MIMEType:   file.MIMEType,
			SizeBytes:  file.Size(),
			URL:        uc.storage.PublicURL(key),
		})
	}

	next := *inst
	next.Files = append(append([]domain.StoredFile(nil), inst.Files...), stored...)
	next.Status = target
	if target == domain.InstanceFinalized {
		first := stored[0]
		next.Artifact = &domain.Artifact{
			StorageKey: first.StorageKey,
			URL:        first.URL,
			MIMEType:   first.MIMEType,
			SizeBytes:  first.SizeBytes,
			RenderedAt: uc.now(),
		}
	}
	if err := uc.save(ctx, &next, inst.Version); err != nil {
		uc.discard(ctx, storedKeys(stored))
		return nil, err
	}
	return &next, nil
}

func (uc *DocumentInstanceUseCase) Verify(ctx context.Context, id string) (*domain.DocumentInstance, error) {
	inst, tpl, err := uc.load(ctx, id, "verify")
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(inst.Status, domain.InstanceVerified, tpl.FileOnly()) {
		return nil, domain.NewError(domain.ErrInvalidTransition, "verify",
			"instance %s is %s", inst.ID, inst.Status)
	}
	next := *inst
	next.Status = domain.InstanceVerified
	if err := uc.save(ctx, &next, inst.Version); err != nil {
		return nil, err
	}
	return &next, nil
}

// Finalize renders the instance into its immutable artifact. Rendering failures
// leave the instance in its previous state.
func (uc *DocumentInstanceUseCase) Finalize(ctx context.Context, id string) (*domain.DocumentInstance, error) {
	inst, tpl, err := uc.load(ctx, id, "finalize")
	if err != nil {
		return nil, err
	}
	if inst.Status == domain.InstanceFinalized {
		return nil, domain.NewError(domain.ErrInvalidTransition, "finalize", "instance %s is already finalized", inst.ID)
	}

	if tpl.FileOnly() {
		if len(inst.Files) == 0 {
			return nil, domain.NewError(domain.ErrInsufficientData, "finalize", "instance %s has no uploaded file", inst.ID)
		}
		next := *inst
		first := inst.Files[0]
		next.Status = domain.InstanceFinalized
		next.Artifact = &domain.Artifact{
			StorageKey: first.StorageKey,
			URL:        first.URL,
			MIMEType:   first.MIMEType,
			SizeBytes:  first.SizeBytes,
			RenderedAt: uc.now(),
		}
		if err := uc.save(ctx, &next, inst.Version); err != nil {
			return nil, err
		}
		return &next, nil
	}

	if !inst.HasData() {
		return nil, domain.NewError(domain.ErrInsufficientData, "finalize", "instance %s has no filled data", inst.ID)
	}
	if tpl.FileRules.RequiredFile && len(inst.Files) == 0 {
		return nil, domain.NewError(domain.ErrInsufficientData, "finalize", "instance %s requires an uploaded file", inst.ID)
	}
	if !domain.CanTransition(inst.Status, domain.InstanceFinalized, false) {
		return nil, domain.NewError(domain.ErrInvalidTransition, "finalize",
			"instance %s is %s", inst.ID, inst.Status)
	}

	artifact, err := uc.renderer.Render(ctx, tpl, inst)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderingFailed, "finalize", err)
	}

	next := *inst
	next.Status = domain.InstanceFinalized
	next.Artifact = artifact
	if err := uc.save(ctx, &next, inst.Version); err != nil {
		uc.discard(ctx, []string{artifact.StorageKey})
		return nil, err
	}
	return &next, nil
}

// Delete removes the instance, then its stored files on a best-effort basis.
func (uc *DocumentInstanceUseCase) Delete(ctx context.Context, id string) error {
	inst, err := uc.instances.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := uc.editableFiling(ctx, inst.FilingID, "delete instance"); err != nil {
		return err
	}
	if err := uc.instances.Delete(ctx, inst.ID); err != nil {
		return fmt.Errorf("delete instance %s: %w", inst.ID, err)
	}
	uc.discard(ctx, inst.StorageKeys())
	return nil
}

func (uc *DocumentInstanceUseCase) load(ctx context.Context, id, operation string) (*domain.DocumentInstance, *domain.DocumentTemplate, error) {
	inst, err := uc.instances.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := uc.editableFiling(ctx, inst.FilingID, operation); err != nil {
		return nil, nil, err
	}
	tpl, err := uc.templates.GetByID(ctx, inst.TemplateID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: load template %s: %w", operation, inst.TemplateCode, err)
	}
	return inst, tpl, nil
}

func (uc *DocumentInstanceUseCase) editableFiling(ctx context.Context, filingID, operation string) (*domain.Filing, error) {
	filing, err := uc.filings.GetByID(ctx, filingID)
	if err != nil {
		return nil, err
	}
	if filing.Status != domain.FilingDraft && filing.Status != domain.FilingInformationRequired {
		return nil, domain.NewError(domain.ErrInvalidTransition, operation,
			"filing %s is %s and no longer accepts document changes", filing.ID, filing.Status)
	}
	return filing, nil
}

func (uc *DocumentInstanceUseCase) save(ctx context.Context, next *domain.DocumentInstance, expectedVersion int) error {
	next.Version = expectedVersion + 1
	next.UpdatedAt = uc.now()
	if err := uc.instances.Update(ctx, next, expectedVersion); err != nil {
		return fmt.Errorf("save instance %s: %w", next.ID, err)
	}
	return nil
}

// validateData checks required-field presence first, then per-field constraints.
func (uc *DocumentInstanceUseCase) validateData(tpl *domain.DocumentTemplate, data map[string]any) error {
	var missing, invalid []string
	for _, field := range tpl.FieldSchema {
		value, ok := data[field.Key]
		if !ok || isBlank(value) {
			if field.Required {
				missing = append(missing, field.Key)
			}
			continue
		}
		if uc.fields == nil {
			continue
		}
		if err := uc.fields.ValidateField(field, value); err != nil {
			invalid = append(invalid, fmt.Sprintf("%s: %v", field.Key, err))
		}
	}
	sort.Strings(invalid)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required fields: "+strings.Join(missing, ", "))
	}
	problems = append(problems, invalid...)
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (uc *DocumentInstanceUseCase) checkFile(rules domain.FileRules, file domain.FileUpload) error {
	if file.Size() == 0 {
		return domain.NewError(domain.ErrInvalidFile, "upload files", "file %q is empty", file.FileName)
	}
	if rules.MaxSizeBytes > 0 && file.Size() > rules.MaxSizeBytes {
		return domain.NewError(domain.ErrFileTooLarge, "upload files",
			"file %q is %d bytes, limit %d", file.FileName, file.Size(), rules.MaxSizeBytes)
	}
	if !rules.Allows(file.MIMEType) {
		return domain.NewError(domain.ErrInvalidFile, "upload files",
			"file %q has type %q, allowed %s", file.FileName, file.MIMEType, strings.Join(rules.AllowedMIMETypes, ", "))
	}
	if uc.inspector != nil {
		if err := uc.inspector.Inspect(file); err != nil {
			return domain.WrapError(domain.ErrInvalidFile, "upload files", fmt.Errorf("file %q: %w", file.FileName, err))
		}
	}
	return nil
}

func (uc *DocumentInstanceUseCase) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := uc.storage.Delete(ctx, key); err != nil {
			slog.Warn("document_file_cleanup_failed", "storage_key", key, "error", err)
		}
	}
}

func storedKeys(files []domain.StoredFile) []string {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.StorageKey)
	}
	return keys
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}
