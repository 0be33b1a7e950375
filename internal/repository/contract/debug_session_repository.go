package contract

import (
	"context"

	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DebugSessionRepository interface {
	Create(ctx context.Context, session *entity.DebugSession) error
	Update(ctx context.Context, session *entity.DebugSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DebugSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DebugSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
