package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/model"
	"draco-chat-be/pkg/workflow"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DebugMapper struct{}

func NewDebugMapper() *DebugMapper {
	return &DebugMapper{}
}

// DebugSessionToEntity rebuilds the workflow snapshot from the flattened
// columns and the steps document.
func (m *DebugMapper) DebugSessionToEntity(s *model.DebugSession) (*entity.DebugSession, error) {
	if s == nil {
		return nil, nil
	}

	var steps []workflow.Step
	if len(s.Steps) > 0 {
		if err := json.Unmarshal(s.Steps, &steps); err != nil {
			return nil, fmt.Errorf("unmarshal debug session steps: %w", err)
		}
	}

	var fullCode *workflow.Step
	if len(s.FullCode) > 0 {
		var fc workflow.Step
		if err := json.Unmarshal(s.FullCode, &fc); err != nil {
			return nil, fmt.Errorf("unmarshal debug session full code: %w", err)
		}
		fullCode = &fc
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.DebugSession{
		Id:        s.Id,
		Query:     s.Query,
		ModelType: s.ModelType,
		ModelName: s.ModelName,
		Snapshot: workflow.Snapshot{
			Query:    s.Query,
			Steps:    steps,
			FullCode: fullCode,
			Run: workflow.RunStatus{
				Status:         workflow.RunState(s.Status),
				Progress:       s.Progress,
				ElapsedSeconds: s.ElapsedSeconds,
				Error:          s.Error,
			},
			ElapsedText: s.ElapsedText,
		},
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}, nil
}

func (m *DebugMapper) DebugSessionToModel(s *entity.DebugSession) (*model.DebugSession, error) {
	if s == nil {
		return nil, nil
	}

	steps, err := json.Marshal(s.Snapshot.Steps)
	if err != nil {
		return nil, fmt.Errorf("marshal debug session steps: %w", err)
	}

	var fullCode datatypes.JSON
	if s.Snapshot.FullCode != nil {
		raw, err := json.Marshal(s.Snapshot.FullCode)
		if err != nil {
			return nil, fmt.Errorf("marshal debug session full code: %w", err)
		}
		fullCode = raw
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.DebugSession{
		Id:             s.Id,
		Query:          s.Query,
		ModelType:      s.ModelType,
		ModelName:      s.ModelName,
		Status:         string(s.Snapshot.Run.Status),
		Progress:       s.Snapshot.Run.Progress,
		ElapsedSeconds: s.Snapshot.Run.ElapsedSeconds,
		ElapsedText:    s.Snapshot.ElapsedText,
		Error:          s.Snapshot.Run.Error,
		Steps:          steps,
		FullCode:       fullCode,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}, nil
}
