package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// PDFLoader extracts plain text from PDF files in-process.
type PDFLoader struct{}

// NewPDFLoader creates a loader for .pdf files.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load extracts the text of every page. A PDF with no extractable text is an error.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("reading pdf text: %w", err)
	}

	text := cleanPDFContent(buf.String())
	if text == "" {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}
	return newDocument(path, text)
}

// SupportedExtensions returns ".pdf".
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// cleanPDFContent drops control characters left by extraction, keeping
// printable text (including non-ASCII), newlines and tabs.
func cleanPDFContent(content string) string {
	var cleaned strings.Builder
	cleaned.Grow(len(content))
	for _, r := range content {
		if r == '\n' || r == '\t' || (r >= 32 && r != 127 && r != 0xFFFD) {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
