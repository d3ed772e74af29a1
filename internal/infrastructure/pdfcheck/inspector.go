// Package pdfcheck verifies that uploads declared as PDF actually parse.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

type Inspector struct{}

var _ ports.FileInspector = Inspector{}

func New() Inspector { return Inspector{} }

// Inspect ignores non-PDF uploads. A PDF must parse and hold at least one page.
func (Inspector) Inspect(upload domain.FileUpload) error {
	if !isPDF(upload.MIMEType) {
		return nil
	}
	if !bytes.HasPrefix(upload.Content, pdfMagic) {
		return errors.New("content is not a PDF document")
	}
	pages, err := countPages(upload.Content)
	if err != nil {
		return fmt.Errorf("unreadable PDF: %w", err)
	}
	if pages < 1 {
		return errors.New("PDF has no pages")
	}
	return nil
}

// countPages recovers from parser panics on malformed cross-reference tables.
func countPages(content []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func isPDF(mimeType string) bool {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf")
}
