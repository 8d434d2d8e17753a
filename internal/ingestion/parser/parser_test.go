package parser

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/types"
)

func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestExtractDocxParagraphsAndTables(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Alice leads the graph team.</w:t></w:r></w:p>
    <w:p><w:r><w:t>She designed the </w:t></w:r><w:r><w:t>ingestion pipeline.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Neo4j</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>graph store</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`
	path := writeDocx(t, doc)

	got, err := ExtractDocx(path)
	if err != nil {
		t.Fatalf("ExtractDocx: %v", err)
	}
	want := "Alice leads the graph team.\nShe designed the ingestion pipeline.\nNeo4j graph store"
	if got != want {
		t.Fatalf("extracted text: want=%q got=%q", want, got)
	}
}

func TestExtractDocxMissingDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	_, err = ExtractDocx(path)
	if !errors.Is(err, pkgerrors.ErrExtraction) {
		t.Fatalf("want ErrExtraction, got=%v", err)
	}
}

func TestExtractPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("# Heading\nBody text."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ExtractPlain(path)
	if err != nil {
		t.Fatalf("ExtractPlain: %v", err)
	}
	if got != "# Heading\nBody text." {
		t.Fatalf("content mismatch: got=%q", got)
	}
}

func TestExtractTextRejectsUnknownKind(t *testing.T) {
	_, err := ExtractText("xlsx", "whatever")
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got=%v", err)
	}
}

func TestKindFromFilename(t *testing.T) {
	cases := map[string]string{
		"report.PDF":   types.SourceKindPdf,
		"notes.docx":   types.SourceKindDocx,
		"readme.md":    types.SourceKindMd,
		"plan.txt":     types.SourceKindTxt,
		"archive.gz":   "",
		"no-extension": "",
	}
	for name, want := range cases {
		if got := KindFromFilename(name); got != want {
			t.Fatalf("KindFromFilename(%q): want=%q got=%q", name, want, got)
		}
	}
}
