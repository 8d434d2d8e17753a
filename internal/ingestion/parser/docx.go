package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
)

type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxPara struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// ExtractDocx pulls paragraph and table text from word/document.xml.
func ExtractDocx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx %s: %v", pkgerrors.ErrExtraction, filepath.Base(path), err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: docx %s missing word/document.xml", pkgerrors.ErrExtraction, filepath.Base(path))
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open document.xml: %v", pkgerrors.ErrExtraction, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: read document.xml: %v", pkgerrors.ErrExtraction, err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: parse document.xml: %v", pkgerrors.ErrExtraction, err)
	}

	var b strings.Builder
	for _, p := range doc.Body.Paras {
		text := paraText(p)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for _, p := range cell.Paras {
					if t := paraText(p); t != "" {
						if cellText.Len() > 0 {
							cellText.WriteString(" ")
						}
						cellText.WriteString(t)
					}
				}
				cells = append(cells, cellText.String())
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.Join(cells, " "))
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: docx %s has no extractable text", pkgerrors.ErrExtraction, filepath.Base(path))
	}
	return out, nil
}

func paraText(p docxPara) string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(b.String())
}
