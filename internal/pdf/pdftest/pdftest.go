// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Page geometry of generated documents.
const (
	PageWidth  = 612
	PageHeight = 792
	FontSize   = 12
	LeftMargin = 72
	FirstLine  = 720
	Leading    = 20
	// GlyphWidth is the advance of every character, in thousandths of an em.
	GlyphWidth = 500
)

// Build returns a PDF with one page per entry of pages. Each string is drawn
// as one line of Helvetica text, top to bottom.
func Build(pages ...[]string) []byte {
	if len(pages) == 0 {
		pages = [][]string{nil}
	}

	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	add("<< /Type /Catalog /Pages 2 0 R >>")
	add("") // page tree, filled in below
	font := add(fontObject())

	kids := make([]string, 0, len(pages))
	for _, lines := range pages {
		stream := contentStream(lines)
		content := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		page := add(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			PageWidth, PageHeight, font, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
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

func fontObject() string {
	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = fmt.Sprint(GlyphWidth)
	}
	return fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func contentStream(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		y := FirstLine - i*Leading
		fmt.Fprintf(&b, "BT /F1 %d Tf 1 0 0 1 %d %d Tm (%s) Tj ET\n", FontSize, LeftMargin, y, escape(line))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Write stores a generated document as dir/name and returns its path.
func Write(t testing.TB, dir, name string, pages ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}
