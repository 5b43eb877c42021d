package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// OfficeLoader extracts text from Office Open XML documents (.docx, .pptx).
type OfficeLoader struct{}

// NewOfficeLoader creates a loader for .docx and .pptx files.
func NewOfficeLoader() *OfficeLoader {
	return &OfficeLoader{}
}

// Load reads the document body of a .docx, or every slide of a .pptx in
// slide order.
func (l *OfficeLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	var parts []*zip.File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".docx":
		for _, f := range zr.File {
			if f.Name == "word/document.xml" {
				parts = append(parts, f)
			}
		}
	case ".pptx":
		parts = slideParts(zr.File)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no document body in %s", filepath.Base(path))
	}

	texts := make([]string, 0, len(parts))
	for _, f := range parts {
		text, err := partText(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	content := strings.Join(texts, "\n\n")
	if content == "" {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}
	return newDocument(path, content)
}

// SupportedExtensions returns ".docx" and ".pptx".
func (l *OfficeLoader) SupportedExtensions() []string {
	return []string{".docx", ".pptx"}
}

// slideParts returns ppt/slides/slideN.xml entries ordered by N.
func slideParts(files []*zip.File) []*zip.File {
	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range files {
		name := strings.TrimPrefix(f.Name, "ppt/slides/slide")
		if name == f.Name || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n, f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	out := make([]*zip.File, len(slides))
	for i, s := range slides {
		out[i] = s.f
	}
	return out
}

func partText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return xmlText(rc)
}

// xmlText collects the character data of text runs (w:t, a:t). Paragraph
// ends and breaks become newlines, tabs become tabs.
func xmlText(r io.Reader) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRightFunc(line, func(r rune) bool { return r == ' ' || r == '\t' }); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), nil
}
