package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestTextLoader_LoadTxtFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.txt", "Hello World")

	doc, err := NewTextLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Content != "Hello World" {
		t.Errorf("unexpected content: %s", doc.Content)
	}
	if doc.Name != "test.txt" {
		t.Errorf("unexpected name: %s", doc.Name)
	}
	if doc.ID != DocumentID(path) {
		t.Error("document id should be derived from path")
	}
}

func TestDocumentID_StableAcrossRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "x")

	wd, _ := os.Getwd()
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		t.Skip("no relative path available")
	}
	if DocumentID(rel) != DocumentID(path) {
		t.Error("relative and absolute paths should share an id")
	}
	if DocumentID(path) == DocumentID(filepath.Join(dir, "b.txt")) {
		t.Error("different files should not collide")
	}
}

func TestMultiLoader_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	txtPath := writeFile(t, dir, "test.txt", "txt content")
	mdPath := writeFile(t, dir, "TEST.MD", "# Markdown")

	loader := NewMultiLoader()

	txt, err := loader.Load(context.Background(), txtPath)
	if err != nil || txt.Content != "txt content" {
		t.Errorf("txt not loaded correctly: %v", err)
	}
	md, err := loader.Load(context.Background(), mdPath)
	if err != nil || md.Content != "# Markdown" {
		t.Errorf("md not loaded correctly: %v", err)
	}
}

func TestMultiLoader_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "image.png", "not text")

	loader := NewMultiLoader()
	_, err := loader.Load(context.Background(), path)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if loader.Supports(path) {
		t.Error("png should not be supported")
	}
}

func TestMultiLoader_AllExtensions(t *testing.T) {
	exts := NewMultiLoader().SupportedExtensions()
	want := []string{".docx", ".markdown", ".md", ".pdf", ".pptx", ".txt"}
	if len(exts) != len(want) {
		t.Fatalf("expected %v, got %v", want, exts)
	}
	for i := range want {
		if exts[i] != want[i] {
			t.Errorf("expected %v, got %v", want, exts)
		}
	}
}

func TestPDFLoader_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "this is not a pdf")

	if _, err := NewPDFLoader().Load(context.Background(), path); err == nil {
		t.Error("should error on invalid pdf")
	}
}

func TestCleanPDFContent(t *testing.T) {
	got := cleanPDFContent("  café\x00 résumé\x07\n\tend � ")
	if got != "café résumé\n\tend" {
		t.Errorf("unexpected cleaned text: %q", got)
	}
}

func TestLoader_NonexistentFile(t *testing.T) {
	if _, err := NewTextLoader().Load(context.Background(), "/nonexistent/file.txt"); err == nil {
		t.Error("should error on nonexistent file")
	}
}
