package pdfcheck

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

// minimalPDF builds a one-page document with a correct cross-reference table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestInspectAcceptsParsablePDF(t *testing.T) {
	err := New().Inspect(domain.FileUpload{FileName: "a.pdf", MIMEType: "application/pdf", Content: minimalPDF()})
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
}

func TestInspectRejectsBrokenPDF(t *testing.T) {
	cases := map[string][]byte{
		"no magic":  []byte("just some text"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
	}
	for name, content := range cases {
		err := New().Inspect(domain.FileUpload{FileName: "a.pdf", MIMEType: "Application/PDF; x=y", Content: content})
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestInspectIgnoresOtherTypes(t *testing.T) {
	if err := New().Inspect(domain.FileUpload{FileName: "a.png", MIMEType: "image/png", Content: []byte("png")}); err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
}
