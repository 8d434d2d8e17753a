package types

import (
	"time"

	"gorm.io/datatypes"
)

type ChatSession struct {
	ID          uint      `gorm:"column:session_id;primaryKey;autoIncrement" json:"session_id"`
	SessionName string    `gorm:"column:session_name;not null" json:"session_name"`
	BrainID     uint      `gorm:"column:brain_id;not null;index" json:"brain_id"`
	Brain       *Brain    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BrainID;references:ID" json:"brain,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (ChatSession) TableName() string { return "chatsession" }

type Chat struct {
	ID              uint           `gorm:"column:chat_id;primaryKey" json:"chat_id"`
	SessionID       uint           `gorm:"column:session_id;not null;index" json:"session_id"`
	Session         *ChatSession   `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	IsAI            bool           `gorm:"column:is_ai;not null" json:"is_ai"`
	Message         string         `gorm:"column:message;not null" json:"message"`
	ReferencedNodes datatypes.JSON `gorm:"column:referenced_nodes" json:"referenced_nodes,omitempty"`
	Accuracy        *float64       `gorm:"column:accuracy" json:"accuracy,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

func (Chat) TableName() string { return "chat" }

// ChatCounter is a single-row table whose value is bumped inside the same
// transaction as each chat insert, so chat ids stay unique and monotonic
// under the sqlite single-writer discipline.
type ChatCounter struct {
	Name  string `gorm:"column:name;primaryKey" json:"name"`
	Value uint   `gorm:"column:value;not null" json:"value"`
}

func (ChatCounter) TableName() string { return "chat_counter" }
