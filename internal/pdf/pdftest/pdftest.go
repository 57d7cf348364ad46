// Package pdftest writes small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Letter page size in points.
const (
	LetterWidth  = 612
	LetterHeight = 792
)

// Write creates a US letter PDF with the given number of pages in a
// temporary directory and returns its path. Every page carries a filled
// rectangle so rendered pages are not blank.
func Write(tb testing.TB, pages int) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "dive-pool.pdf")
	if err := os.WriteFile(path, Build(pages), 0o644); err != nil {
		tb.Fatalf("write test pdf: %v", err)
	}
	return path
}

// Build renders the document bytes. Object 1 is the catalog, 2 the page
// tree, then one page object and one content stream per page.
func Build(pages int) []byte {
	var objects []string

	kids := make([]byte, 0, pages*8)
	for i := 0; i < pages; i++ {
		kids = fmt.Appendf(kids, "%d 0 R ", 3+2*i)
	}

	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids), pages))

	for i := 0; i < pages; i++ {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			LetterWidth, LetterHeight, 4+2*i))

		content := fmt.Sprintf("0.%d 0.2 0.6 rg %d %d 200 300 re f", i+1, 72+40*i, 72+20*i)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
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
