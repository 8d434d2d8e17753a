package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
)

// ExtractPdf pulls plain text from every page of a PDF. Pages whose text
// layer cannot be decoded are skipped rather than failing the document.
func ExtractPdf(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %s: %v", pkgerrors.ErrExtraction, filepath.Base(path), err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: pdf %s has no extractable text", pkgerrors.ErrExtraction, filepath.Base(path))
	}
	return out, nil
}
