package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

type ChatRequest struct {
	ChatSessionId *uuid.UUID       `json:"chat_session_id,omitempty"`
	Messages      []ChatMessageDTO `json:"messages" validate:"required,min=1,dive"`
	ModelType     string           `json:"model_type,omitempty"`
	ModelName     string           `json:"model_name,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	MaxTokens     int              `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	Model         string    `json:"model"`
	Content       string    `json:"content"`
}

type CreateSessionRequest struct {
	Title     string `json:"title" validate:"required"`
	ModelType string `json:"model_type,omitempty"`
	ModelName string `json:"model_name,omitempty"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	ModelType string     `json:"model_type"`
	ModelName string     `json:"model_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
