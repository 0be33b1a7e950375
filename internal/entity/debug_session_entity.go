package entity

import (
	"time"

	"github.com/google/uuid"

	"draco-chat-be/pkg/workflow"
)

// DebugSession is one persisted DeepDebug run: the original query plus the
// frozen workflow snapshot.
type DebugSession struct {
	Id        uuid.UUID
	Query     string
	ModelType string
	ModelName string
	Snapshot  workflow.Snapshot
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
