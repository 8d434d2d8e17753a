package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/yungbote/braingraph-backend/internal/pkg/errors"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

const chatCounterName = "chat_id"

type ChatRepo interface {
	CreateSession(ctx context.Context, tx *gorm.DB, session *types.ChatSession) (*types.ChatSession, error)
	GetSession(ctx context.Context, tx *gorm.DB, sessionID uint) (*types.ChatSession, error)
	ListSessionsByBrain(ctx context.Context, tx *gorm.DB, brainID uint) ([]*types.ChatSession, error)
	DeleteSession(ctx context.Context, tx *gorm.DB, sessionID uint) error

	// SaveChat allocates the chat id from the counter row inside the same
	// transaction as the insert and returns it.
	SaveChat(ctx context.Context, tx *gorm.DB, sessionID uint, isAI bool, message string, referencedNodes []types.ReferencedNode, accuracy *float64) (uint, error)
	GetChatList(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*types.Chat, error)
	GetChatByID(ctx context.Context, tx *gorm.DB, chatID uint) (*types.Chat, error)
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: baseLog.With("repo", "ChatRepo")}
}

func (r *chatRepo) CreateSession(ctx context.Context, tx *gorm.DB, session *types.ChatSession) (*types.ChatSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("%w: create session: %v", pkgerrors.ErrMetadataStore, err)
	}
	return session, nil
}

func (r *chatRepo) GetSession(ctx context.Context, tx *gorm.DB, sessionID uint) (*types.ChatSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.ChatSession
	if err := transaction.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %d", pkgerrors.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: get session: %v", pkgerrors.ErrMetadataStore, err)
	}
	return &session, nil
}

func (r *chatRepo) ListSessionsByBrain(ctx context.Context, tx *gorm.DB, brainID uint) ([]*types.ChatSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var sessions []*types.ChatSession
	if err := transaction.WithContext(ctx).
		Where("brain_id = ?", brainID).
		Order("session_id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", pkgerrors.ErrMetadataStore, err)
	}
	return sessions, nil
}

func (r *chatRepo) DeleteSession(ctx context.Context, tx *gorm.DB, sessionID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(t *gorm.DB) error {
		if err := t.Where("session_id = ?", sessionID).Delete(&types.Chat{}).Error; err != nil {
			return fmt.Errorf("%w: delete chats: %v", pkgerrors.ErrMetadataStore, err)
		}
		res := t.Delete(&types.ChatSession{}, "session_id = ?", sessionID)
		if res.Error != nil {
			return fmt.Errorf("%w: delete session: %v", pkgerrors.ErrMetadataStore, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: session %d", pkgerrors.ErrNotFound, sessionID)
		}
		return nil
	})
}

func (r *chatRepo) SaveChat(ctx context.Context, tx *gorm.DB, sessionID uint, isAI bool, message string, referencedNodes []types.ReferencedNode, accuracy *float64) (uint, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var refsJSON datatypes.JSON
	if isAI {
		if referencedNodes == nil {
			referencedNodes = []types.ReferencedNode{}
		}
		raw, err := json.Marshal(referencedNodes)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal references: %v", pkgerrors.ErrMetadataStore, err)
		}
		refsJSON = raw
	}

	var chatID uint
	err := transaction.WithContext(ctx).Transaction(func(t *gorm.DB) error {
		counter := types.ChatCounter{Name: chatCounterName, Value: 0}
		if err := t.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return fmt.Errorf("%w: seed counter: %v", pkgerrors.ErrMetadataStore, err)
		}
		if err := t.Model(&types.ChatCounter{}).
			Where("name = ?", chatCounterName).
			Update("value", gorm.Expr("value + 1")).Error; err != nil {
			return fmt.Errorf("%w: bump counter: %v", pkgerrors.ErrMetadataStore, err)
		}
		var bumped types.ChatCounter
		if err := t.First(&bumped, "name = ?", chatCounterName).Error; err != nil {
			return fmt.Errorf("%w: read counter: %v", pkgerrors.ErrMetadataStore, err)
		}
		chatID = bumped.Value

		chat := types.Chat{
			ID:              chatID,
			SessionID:       sessionID,
			IsAI:            isAI,
			Message:         message,
			ReferencedNodes: refsJSON,
			Accuracy:        accuracy,
			CreatedAt:       time.Now().UTC(),
		}
		if err := t.Create(&chat).Error; err != nil {
			return fmt.Errorf("%w: insert chat: %v", pkgerrors.ErrMetadataStore, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return chatID, nil
}

func (r *chatRepo) GetChatList(ctx context.Context, tx *gorm.DB, sessionID uint) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var chats []*types.Chat
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("chat_id ASC").
		Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("%w: list chats: %v", pkgerrors.ErrMetadataStore, err)
	}
	return chats, nil
}

func (r *chatRepo) GetChatByID(ctx context.Context, tx *gorm.DB, chatID uint) (*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var chat types.Chat
	if err := transaction.WithContext(ctx).First(&chat, "chat_id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: chat %d", pkgerrors.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("%w: get chat: %v", pkgerrors.ErrMetadataStore, err)
	}
	return &chat, nil
}
