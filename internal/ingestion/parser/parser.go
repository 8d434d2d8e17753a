package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/types"
)

// ExtractText reads a stored document and returns its plain text, routed by
// source kind. Unknown kinds are rejected before touching the file.
func ExtractText(kind, path string) (string, error) {
	switch kind {
	case types.SourceKindPdf:
		return ExtractPdf(path)
	case types.SourceKindDocx:
		return ExtractDocx(path)
	case types.SourceKindTxt, types.SourceKindMd, types.SourceKindMemo:
		return ExtractPlain(path)
	default:
		return "", fmt.Errorf("%w: unsupported source kind %q", pkgerrors.ErrInvalidArgument, kind)
	}
}

// KindFromFilename infers the source kind from a file extension.
func KindFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return types.SourceKindPdf
	case ".docx":
		return types.SourceKindDocx
	case ".md", ".markdown":
		return types.SourceKindMd
	case ".txt":
		return types.SourceKindTxt
	default:
		return ""
	}
}

// ExtractPlain returns the file contents as-is. Markdown keeps its markers;
// the sentence segmenter downstream strips heading and list syntax.
func ExtractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", pkgerrors.ErrExtraction, filepath.Base(path), err)
	}
	return string(data), nil
}
