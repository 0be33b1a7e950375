package dto

import (
	"time"

	"github.com/google/uuid"

	"draco-chat-be/pkg/workflow"
)

type StartDebugRequest struct {
	Query     string `json:"query" validate:"required"`
	ModelType string `json:"model_type,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

type DebugSessionResponse struct {
	Id          uuid.UUID           `json:"id"`
	Query       string              `json:"query"`
	ModelType   string              `json:"model_type"`
	ModelName   string              `json:"model_name"`
	Status      workflow.RunState   `json:"status"`
	Progress    int                 `json:"progress"`
	ElapsedText string              `json:"elapsed_text"`
	Error       string              `json:"error,omitempty"`
	Steps       []workflow.Step     `json:"steps"`
	FullCode    *workflow.Step      `json:"full_code,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// DebugRunUpdate is pushed to websocket watchers after each applied frame.
type DebugRunUpdate struct {
	SessionId string             `json:"session_id"`
	Steps     []workflow.Step    `json:"steps"`
	FullCode  *workflow.Step     `json:"full_code,omitempty"`
	Run       workflow.RunStatus `json:"run"`
}

// PersistSnapshotMessage is the payload queued on the internal bus when a
// run reaches a terminal state.
type PersistSnapshotMessage struct {
	SessionId uuid.UUID         `json:"session_id"`
	ModelType string            `json:"model_type"`
	ModelName string            `json:"model_name"`
	Snapshot  workflow.Snapshot `json:"snapshot"`
}
