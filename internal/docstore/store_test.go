package docstore

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T, dir string) *Store {
	t.Helper()
	return New(dir, Splitter{ChunkSize: 900, Overlap: 150}, nil)
}

func TestLoad_MixedDirectory(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "networks.md", "# OSI\nSeven layers.\n\n# TCP\nFour layers.\n")
	writeFile(t, dir, "notes.txt", "HTTP uses port 80.")
	writeFile(t, dir, "image.png", "\x89PNG not text")
	writeFile(t, dir, "empty.txt", "   \n")

	chunks, err := testStore(t, dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// 2 sections from networks.md + 1 chunk from notes.txt; png and empty skipped.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	sources := make(map[string]int)
	for _, c := range chunks {
		sources[filepath.Base(c.Source())]++
	}
	if sources["networks.md"] != 2 || sources["notes.txt"] != 1 {
		t.Errorf("unexpected source distribution: %v", sources)
	}
}

func TestLoad_MissingDirectoryIsEmptyCorpus(t *testing.T) {
	chunks, err := testStore(t, filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load on missing dir: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected empty corpus, got %d chunks", len(chunks))
	}
}

func TestLoad_MalformedFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "this is not a pdf")
	writeFile(t, dir, "fine.txt", "still loads")

	chunks, err := testStore(t, dir).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected only the valid file's chunk, got %d", len(chunks))
	}
	if filepath.Base(chunks[0].Source()) != "fine.txt" {
		t.Errorf("unexpected source %q", chunks[0].Source())
	}
}

func TestRegister_CustomLoaderWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.csv", "ignored")

	s := testStore(t, dir)
	s.Register(".csv", func(string) (string, error) { return "custom loader text", nil })

	chunks, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Content() != "custom loader text" {
		t.Fatalf("custom loader not applied: %+v", chunks)
	}
}

func TestLoadDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.docx")
	writeDOCX(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t> paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := loadDOCX(path)
	if err != nil {
		t.Fatalf("loadDOCX: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d: %q", len(lines), text)
	}
	if lines[0] != "First paragraph." || lines[1] != "Second paragraph." {
		t.Errorf("unexpected paragraphs: %q", lines)
	}
}

func TestContentStreamText(t *testing.T) {
	stream := "BT /F1 12 Tf (Hello) Tj [(wor) -20 (ld)] TJ ET"
	got := contentStreamText(stream)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "wor") || !strings.Contains(got, "ld") {
		t.Errorf("contentStreamText: %q", got)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeDOCX(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}
