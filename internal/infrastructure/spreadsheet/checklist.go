package spreadsheet

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const checklistSheet = "Checklist"

// ChecklistExporter writes a completeness summary as a one-sheet workbook.
type ChecklistExporter struct{}

var _ ports.ChecklistExporter = ChecklistExporter{}

func (ChecklistExporter) ContentType() string { return ContentTypeXLSX }

func (ChecklistExporter) ExportChecklist(_ context.Context, summary *domain.CompletenessSummary, out io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", checklistSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	w := sheetWriter{f: f, sheet: checklistSheet}
	w.row("Filing", summary.FilingID)
	w.row("Track", string(summary.Track))
	w.row("Required completed", fmt.Sprintf("%d/%d", summary.CompletedRequired, summary.TotalRequired))
	w.row("Optional completed", fmt.Sprintf("%d/%d", summary.CompletedOptional, summary.TotalOptional))
	w.row("Progress (%)", summary.Percent)
	w.row("Ready to submit", summary.AllRequiredComplete)
	w.skip()
	header := w.row("Code", "Document", "Status")
	for _, ref := range summary.MissingRequired {
		w.row(ref.Code, ref.Name, "MISSING (required)")
	}
	for _, ref := range summary.AvailableOptional {
		w.row(ref.Code, ref.Name, "AVAILABLE (optional)")
	}
	if w.err != nil {
		return w.err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(checklistSheet, fmt.Sprintf("A%d", header), fmt.Sprintf("C%d", header), bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(checklistSheet, "A", "C", 28); err != nil {
		return fmt.Errorf("set widths: %w", err)
	}
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write checklist: %w", err)
	}
	return nil
}
