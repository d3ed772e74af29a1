// Package spreadsheet renders finalized document instances and completeness
// checklists as XLSX workbooks.
package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const documentSheet = "Document"

// Renderer writes one workbook per finalized instance into file storage.
type Renderer struct {
	storage ports.FileStorage
	now     func() time.Time
}

var _ ports.Renderer = (*Renderer)(nil)

func NewRenderer(storage ports.FileStorage) *Renderer {
	return &Renderer{storage: storage, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Renderer) Render(ctx context.Context, tpl *domain.DocumentTemplate, inst *domain.DocumentInstance) (*domain.Artifact, error) {
	renderedAt := r.now()
	buf, err := r.workbook(tpl, inst, renderedAt)
	if err != nil {
		return nil, err
	}
	size := int64(buf.Len())

	folder := path.Join("artifacts", inst.FilingID, inst.ID)
	name := fmt.Sprintf("%s-v%d.xlsx", tpl.Code, tpl.Version)
	key, err := r.storage.Store(ctx, folder, name, buf)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return &domain.Artifact{
		StorageKey: key,
		URL:        r.storage.PublicURL(key),
		MIMEType:   ContentTypeXLSX,
		SizeBytes:  size,
		RenderedAt: renderedAt,
	}, nil
}

func (r *Renderer) workbook(tpl *domain.DocumentTemplate, inst *domain.DocumentInstance, renderedAt time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", documentSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       tpl.Name,
		Subject:     tpl.Code,
		Identifier:  inst.ID,
		Description: fmt.Sprintf("filing %s, template version %d", inst.FilingID, inst.TemplateVersion),
	}); err != nil {
		return nil, fmt.Errorf("set properties: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := sheetWriter{f: f, sheet: documentSheet}
	w.row(tpl.Name)
	w.row("Code", tpl.Code)
	w.row("Template version", tpl.Version)
	w.row("Filing", inst.FilingID)
	w.row("Instance", inst.ID)
	w.row("Rendered at", renderedAt.Format(time.RFC3339))
	w.skip()
	header := w.row("Field", "Key", "Value")
	for _, field := range tpl.FieldSchema {
		w.row(field.Label, field.Key, cellValue(inst.FilledData[field.Key]))
	}
	for _, key := range extraKeys(tpl.FieldSchema, inst.FilledData) {
		w.row("", key, cellValue(inst.FilledData[key]))
	}
	if len(inst.Files) > 0 {
		w.skip()
		w.row("Attached file", "Type", "Size (bytes)")
		for _, file := range inst.Files {
			w.row(file.FileName, file.MIMEType, file.SizeBytes)
		}
	}
	if w.err != nil {
		return nil, w.err
	}

	if err := f.SetCellStyle(documentSheet, "A1", "A1", bold); err != nil {
		return nil, fmt.Errorf("style title: %w", err)
	}
	if err := f.SetCellStyle(documentSheet, fmt.Sprintf("A%d", header), fmt.Sprintf("C%d", header), bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(documentSheet, "A", "C", 32); err != nil {
		return nil, fmt.Errorf("set widths: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// extraKeys returns filled keys the schema does not declare, sorted.
func extraKeys(schema domain.FieldSchema, data map[string]any) []string {
	declared := make(map[string]bool, len(schema))
	for _, field := range schema {
		declared[field.Key] = true
	}
	var out []string
	for key := range data {
		if !declared[key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) row(values ...any) int {
	w.next++
	if w.err != nil {
		return w.next
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return w.next
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write row %d: %w", w.next, err)
	}
	return w.next
}

func (w *sheetWriter) skip() {
	w.next++
}
