package types

import (
	"time"
)

// Source kinds. The kind tag travels with every source record and is the
// discriminator for the per-kind tables below.
const (
	SourceKindPdf  = "pdf"
	SourceKindTxt  = "txt"
	SourceKindMd   = "md"
	SourceKindDocx = "docx"
	SourceKindMemo = "memo"
)

// SourceRecord is the kind-independent projection used by handlers and the
// ingestion pipeline. Numeric ID is the id minted by the owning table; it is
// the `source_id` that appears in graph descriptions and vector payloads.
type SourceRecord struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
	Kind    string `json:"type"`
	BrainID uint   `json:"brain_id"`
}

type Pdf struct {
	ID        uint      `gorm:"column:pdf_id;primaryKey;autoIncrement" json:"pdf_id"`
	Title     string    `gorm:"column:pdf_title;not null" json:"pdf_title"`
	Content   string    `gorm:"column:pdf_text" json:"pdf_text,omitempty"`
	Path      string    `gorm:"column:pdf_path" json:"pdf_path,omitempty"`
	BrainID   uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain     *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Pdf) TableName() string { return "pdf" }

type TextFile struct {
	ID        uint      `gorm:"column:txt_id;primaryKey;autoIncrement" json:"txt_id"`
	Title     string    `gorm:"column:txt_title;not null" json:"txt_title"`
	Content   string    `gorm:"column:txt_text" json:"txt_text,omitempty"`
	Path      string    `gorm:"column:txt_path" json:"txt_path,omitempty"`
	BrainID   uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain     *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (TextFile) TableName() string { return "textfile" }

type MdFile struct {
	ID        uint      `gorm:"column:md_id;primaryKey;autoIncrement" json:"md_id"`
	Title     string    `gorm:"column:md_title;not null" json:"md_title"`
	Content   string    `gorm:"column:md_text" json:"md_text,omitempty"`
	Path      string    `gorm:"column:md_path" json:"md_path,omitempty"`
	BrainID   uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain     *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (MdFile) TableName() string { return "mdfile" }

type DocxFile struct {
	ID        uint      `gorm:"column:docx_id;primaryKey;autoIncrement" json:"docx_id"`
	Title     string    `gorm:"column:docx_title;not null" json:"docx_title"`
	Content   string    `gorm:"column:docx_text" json:"docx_text,omitempty"`
	Path      string    `gorm:"column:docx_path" json:"docx_path,omitempty"`
	BrainID   uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain     *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (DocxFile) TableName() string { return "docxfile" }

type Memo struct {
	ID        uint      `gorm:"column:memo_id;primaryKey;autoIncrement" json:"memo_id"`
	Title     string    `gorm:"column:memo_title;not null" json:"memo_title"`
	Content   string    `gorm:"column:memo_text" json:"memo_text,omitempty"`
	IsSource  bool      `gorm:"column:is_source;not null;default:false" json:"is_source"`
	BrainID   uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain     *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Memo) TableName() string { return "memo" }
