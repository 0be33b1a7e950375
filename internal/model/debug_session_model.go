package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DebugSession stores one workflow run. Steps holds the ordered step list
// as JSON; the remaining snapshot fields are flattened into columns so runs
// can be filtered by status without unpacking the document.
type DebugSession struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Query          string         `gorm:"type:text;not null"`
	ModelType      string         `gorm:"type:varchar(32);not null"`
	ModelName      string         `gorm:"type:varchar(128);not null"`
	Status         string         `gorm:"type:varchar(16);not null;index"`
	Progress       int            `gorm:"not null;default:0"`
	ElapsedSeconds int            `gorm:"not null;default:0"`
	ElapsedText    string         `gorm:"type:varchar(16);not null;default:''"`
	Error          string         `gorm:"type:text"`
	Steps          datatypes.JSON `gorm:"type:jsonb"`
	FullCode       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (DebugSession) TableName() string {
	return "debug_sessions"
}
