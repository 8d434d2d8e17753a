package types

import (
	"time"
)

type Brain struct {
	ID             uint      `gorm:"column:brain_id;primaryKey;autoIncrement" json:"brain_id"`
	BrainName      string    `gorm:"column:brain_name;not null" json:"brain_name"`
	IsImportant    bool      `gorm:"column:is_important;not null;default:false" json:"is_important"`
	DeploymentType string    `gorm:"column:deployment_type;not null;default:'local'" json:"deployment_type"`
	CreatedAt      time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Brain) TableName() string { return "brain" }
