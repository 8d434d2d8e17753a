package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type SourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rec *types.SourceRecord) (*types.SourceRecord, error)
	Get(ctx context.Context, tx *gorm.DB, kind string, id uint) (*types.SourceRecord, error)
	UpdateText(ctx context.Context, tx *gorm.DB, kind string, id uint, title, content string) error
	Delete(ctx context.Context, tx *gorm.DB, kind string, id uint) error
	ListByBrain(ctx context.Context, tx *gorm.DB, brainID uint, kind string) ([]*types.SourceRecord, error)
	// GetTitlesByIDs resolves a mixed-kind id batch in one UNION query.
	GetTitlesByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error)
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func kindModel(kind string) (any, string, string, string, error) {
	switch kind {
	case types.SourceKindPdf:
		return &types.Pdf{}, "pdf", "pdf_id", "pdf_title", nil
	case types.SourceKindTxt:
		return &types.TextFile{}, "textfile", "txt_id", "txt_title", nil
	case types.SourceKindMd:
		return &types.MdFile{}, "mdfile", "md_id", "md_title", nil
	case types.SourceKindDocx:
		return &types.DocxFile{}, "docxfile", "docx_id", "docx_title", nil
	case types.SourceKindMemo:
		return &types.Memo{}, "memo", "memo_id", "memo_title", nil
	default:
		return nil, "", "", "", fmt.Errorf("%w: unknown source kind %q", pkgerrors.ErrInvalidArgument, kind)
	}
}

func (r *sourceRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.SourceRecord) (*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	switch rec.Kind {
	case types.SourceKindPdf:
		row := types.Pdf{Title: rec.Title, Content: rec.Content, Path: rec.Path, BrainID: rec.BrainID}
		if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("%w: create pdf: %v", pkgerrors.ErrMetadataStore, err)
		}
		rec.ID = row.ID
	case types.SourceKindTxt:
		row := types.TextFile{Title: rec.Title, Content: rec.Content, Path: rec.Path, BrainID: rec.BrainID}
		if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("%w: create textfile: %v", pkgerrors.ErrMetadataStore, err)
		}
		rec.ID = row.ID
	case types.SourceKindMd:
		row := types.MdFile{Title: rec.Title, Content: rec.Content, Path: rec.Path, BrainID: rec.BrainID}
		if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("%w: create mdfile: %v", pkgerrors.ErrMetadataStore, err)
		}
		rec.ID = row.ID
	case types.SourceKindDocx:
		row := types.DocxFile{Title: rec.Title, Content: rec.Content, Path: rec.Path, BrainID: rec.BrainID}
		if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("%w: create docxfile: %v", pkgerrors.ErrMetadataStore, err)
		}
		rec.ID = row.ID
	case types.SourceKindMemo:
		row := types.Memo{Title: rec.Title, Content: rec.Content, BrainID: rec.BrainID}
		if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("%w: create memo: %v", pkgerrors.ErrMetadataStore, err)
		}
		rec.ID = row.ID
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", pkgerrors.ErrInvalidArgument, rec.Kind)
	}
	return rec, nil
}

func (r *sourceRepo) Get(ctx context.Context, tx *gorm.DB, kind string, id uint) (*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	model, _, idCol, _, err := kindModel(kind)
	if err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).First(model, idCol+" = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", pkgerrors.ErrNotFound, kind, id)
		}
		return nil, fmt.Errorf("%w: get %s: %v", pkgerrors.ErrMetadataStore, kind, err)
	}
	return toRecord(kind, model), nil
}

func (r *sourceRepo) UpdateText(ctx context.Context, tx *gorm.DB, kind string, id uint, title, content string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	model, table, idCol, titleCol, err := kindModel(kind)
	if err != nil {
		return err
	}
	_ = model
	updates := map[string]any{}
	if title != "" {
		updates[titleCol] = title
	}
	if content != "" {
		updates[textColumn(kind)] = content
	}
	if len(updates) == 0 {
		return nil
	}
	res := transaction.WithContext(ctx).Table(table).Where(idCol+" = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: update %s: %v", pkgerrors.ErrMetadataStore, kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d", pkgerrors.ErrNotFound, kind, id)
	}
	return nil
}

func (r *sourceRepo) Delete(ctx context.Context, tx *gorm.DB, kind string, id uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	model, _, idCol, _, err := kindModel(kind)
	if err != nil {
		return err
	}
	res := transaction.WithContext(ctx).Where(idCol+" = ?", id).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("%w: delete %s: %v", pkgerrors.ErrMetadataStore, kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d", pkgerrors.ErrNotFound, kind, id)
	}
	return nil
}

func (r *sourceRepo) ListByBrain(ctx context.Context, tx *gorm.DB, brainID uint, kind string) ([]*types.SourceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	kinds := []string{kind}
	if kind == "" {
		kinds = []string{
			types.SourceKindPdf, types.SourceKindTxt, types.SourceKindMd,
			types.SourceKindDocx, types.SourceKindMemo,
		}
	}
	var out []*types.SourceRecord
	for _, k := range kinds {
		recs, err := r.listKind(ctx, transaction, brainID, k)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (r *sourceRepo) listKind(ctx context.Context, tx *gorm.DB, brainID uint, kind string) ([]*types.SourceRecord, error) {
	switch kind {
	case types.SourceKindPdf:
		var rows []types.Pdf
		if err := tx.WithContext(ctx).Where("brain_id = ?", brainID).Order("pdf_id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: list pdfs: %v", pkgerrors.ErrMetadataStore, err)
		}
		out := make([]*types.SourceRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toRecord(kind, &rows[i]))
		}
		return out, nil
	case types.SourceKindTxt:
		var rows []types.TextFile
		if err := tx.WithContext(ctx).Where("brain_id = ?", brainID).Order("txt_id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: list textfiles: %v", pkgerrors.ErrMetadataStore, err)
		}
		out := make([]*types.SourceRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toRecord(kind, &rows[i]))
		}
		return out, nil
	case types.SourceKindMd:
		var rows []types.MdFile
		if err := tx.WithContext(ctx).Where("brain_id = ?", brainID).Order("md_id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: list mdfiles: %v", pkgerrors.ErrMetadataStore, err)
		}
		out := make([]*types.SourceRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toRecord(kind, &rows[i]))
		}
		return out, nil
	case types.SourceKindDocx:
		var rows []types.DocxFile
		if err := tx.WithContext(ctx).Where("brain_id = ?", brainID).Order("docx_id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: list docxfiles: %v", pkgerrors.ErrMetadataStore, err)
		}
		out := make([]*types.SourceRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toRecord(kind, &rows[i]))
		}
		return out, nil
	case types.SourceKindMemo:
		var rows []types.Memo
		if err := tx.WithContext(ctx).Where("brain_id = ? AND is_source = ?", brainID, true).Order("memo_id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: list memos: %v", pkgerrors.ErrMetadataStore, err)
		}
		out := make([]*types.SourceRecord, 0, len(rows))
		for i := range rows {
			out = append(out, toRecord(kind, &rows[i]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", pkgerrors.ErrInvalidArgument, kind)
	}
}

// GetTitlesByIDs resolves titles for a batch of source ids across all five
// source tables with one UNION query. Ids are globally unique only per table,
// so the first match wins in table order; pipelines mint ids from distinct
// tables but citation expansion only ever looks up ids it has previously
// written, which keeps the lookup unambiguous in practice.
func (r *sourceRepo) GetTitlesByIDs(ctx context.Context, tx *gorm.DB, ids []uint) (map[uint]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	type row struct {
		ID    uint   `gorm:"column:id"`
		Title string `gorm:"column:title"`
	}
	var rows []row
	query := `
SELECT pdf_id AS id, pdf_title AS title FROM pdf WHERE pdf_id IN ?
UNION ALL
SELECT txt_id AS id, txt_title AS title FROM textfile WHERE txt_id IN ?
UNION ALL
SELECT md_id AS id, md_title AS title FROM mdfile WHERE md_id IN ?
UNION ALL
SELECT docx_id AS id, docx_title AS title FROM docxfile WHERE docx_id IN ?
UNION ALL
SELECT memo_id AS id, memo_title AS title FROM memo WHERE memo_id IN ?`
	if err := transaction.WithContext(ctx).
		Raw(query, ids, ids, ids, ids, ids).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: titles by ids: %v", pkgerrors.ErrMetadataStore, err)
	}
	for _, rw := range rows {
		if _, ok := out[rw.ID]; !ok {
			out[rw.ID] = rw.Title
		}
	}
	return out, nil
}

func textColumn(kind string) string {
	switch kind {
	case types.SourceKindPdf:
		return "pdf_text"
	case types.SourceKindTxt:
		return "txt_text"
	case types.SourceKindMd:
		return "md_text"
	case types.SourceKindDocx:
		return "docx_text"
	default:
		return "memo_text"
	}
}

func toRecord(kind string, model any) *types.SourceRecord {
	switch m := model.(type) {
	case *types.Pdf:
		return &types.SourceRecord{ID: m.ID, Title: m.Title, Content: m.Content, Path: m.Path, Kind: kind, BrainID: m.BrainID}
	case *types.TextFile:
		return &types.SourceRecord{ID: m.ID, Title: m.Title, Content: m.Content, Path: m.Path, Kind: kind, BrainID: m.BrainID}
	case *types.MdFile:
		return &types.SourceRecord{ID: m.ID, Title: m.Title, Content: m.Content, Path: m.Path, Kind: kind, BrainID: m.BrainID}
	case *types.DocxFile:
		return &types.SourceRecord{ID: m.ID, Title: m.Title, Content: m.Content, Path: m.Path, Kind: kind, BrainID: m.BrainID}
	case *types.Memo:
		return &types.SourceRecord{ID: m.ID, Title: m.Title, Content: m.Content, Kind: kind, BrainID: m.BrainID}
	default:
		return nil
	}
}
