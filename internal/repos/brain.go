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

type BrainRepo interface {
	Create(ctx context.Context, tx *gorm.DB, brain *types.Brain) (*types.Brain, error)
	GetByID(ctx context.Context, tx *gorm.DB, brainID uint) (*types.Brain, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Brain, error)
	Update(ctx context.Context, tx *gorm.DB, brain *types.Brain) error
	Delete(ctx context.Context, tx *gorm.DB, brainID uint) error
}

type brainRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrainRepo(db *gorm.DB, baseLog *logger.Logger) BrainRepo {
	return &brainRepo{db: db, log: baseLog.With("repo", "BrainRepo")}
}

func (r *brainRepo) Create(ctx context.Context, tx *gorm.DB, brain *types.Brain) (*types.Brain, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(brain).Error; err != nil {
		return nil, fmt.Errorf("%w: create brain: %v", pkgerrors.ErrMetadataStore, err)
	}
	return brain, nil
}

func (r *brainRepo) GetByID(ctx context.Context, tx *gorm.DB, brainID uint) (*types.Brain, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var brain types.Brain
	if err := transaction.WithContext(ctx).First(&brain, "brain_id = ?", brainID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: brain %d", pkgerrors.ErrNotFound, brainID)
		}
		return nil, fmt.Errorf("%w: get brain: %v", pkgerrors.ErrMetadataStore, err)
	}
	return &brain, nil
}

func (r *brainRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Brain, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var brains []*types.Brain
	if err := transaction.WithContext(ctx).
		Order("brain_id ASC").
		Find(&brains).Error; err != nil {
		return nil, fmt.Errorf("%w: list brains: %v", pkgerrors.ErrMetadataStore, err)
	}
	return brains, nil
}

func (r *brainRepo) Update(ctx context.Context, tx *gorm.DB, brain *types.Brain) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(brain).Error; err != nil {
		return fmt.Errorf("%w: update brain: %v", pkgerrors.ErrMetadataStore, err)
	}
	return nil
}

// Delete removes the brain row and every relational record it owns. Graph
// content and the vector collection are cascaded by the caller.
func (r *brainRepo) Delete(ctx context.Context, tx *gorm.DB, brainID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(t *gorm.DB) error {
		var sessionIDs []uint
		if err := t.Model(&types.ChatSession{}).
			Where("brain_id = ?", brainID).
			Pluck("session_id", &sessionIDs).Error; err != nil {
			return fmt.Errorf("%w: collect sessions: %v", pkgerrors.ErrMetadataStore, err)
		}
		if len(sessionIDs) > 0 {
			if err := t.Where("session_id IN ?", sessionIDs).Delete(&types.Chat{}).Error; err != nil {
				return fmt.Errorf("%w: delete chats: %v", pkgerrors.ErrMetadataStore, err)
			}
		}
		for _, model := range []any{
			&types.ChatSession{}, &types.Pdf{}, &types.TextFile{},
			&types.MdFile{}, &types.DocxFile{}, &types.Memo{},
		} {
			if err := t.Where("brain_id = ?", brainID).Delete(model).Error; err != nil {
				return fmt.Errorf("%w: delete owned rows: %v", pkgerrors.ErrMetadataStore, err)
			}
		}
		if err := t.Delete(&types.Brain{}, "brain_id = ?", brainID).Error; err != nil {
			return fmt.Errorf("%w: delete brain: %v", pkgerrors.ErrMetadataStore, err)
		}
		return nil
	})
}
