package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"draco-chat-be/internal/dto"
	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/pkg/logger"
	"draco-chat-be/internal/repository/specification"
	"draco-chat-be/internal/repository/unitofwork"
	"draco-chat-be/pkg/events"
	"draco-chat-be/pkg/llm"
	"draco-chat-be/pkg/nats"
)

// IChatService handles the plain conversation surface: sessions, history
// and one-shot or streamed model exchanges.
type IChatService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, limit, offset int) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error
	Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error)
	ChatStream(ctx context.Context, request *dto.ChatRequest, onDelta func(delta string) error) (*dto.ChatResponse, error)
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	modelService IModelService
	publisher    *nats.Publisher
	logger       logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	modelService IModelService,
	publisher *nats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		modelService: modelService,
		publisher:    publisher,
		logger:       log,
	}
}

func (s *chatService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := &entity.ChatSession{
		Title:     request.Title,
		ModelType: request.ModelType,
		ModelName: request.ModelName,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (s *chatService) GetAllSessions(ctx context.Context, limit, offset int) ([]*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}

	res := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, sess := range sessions {
		res[i] = &dto.GetAllSessionsResponse{
			Id:        sess.Id,
			Title:     sess.Title,
			ModelType: sess.ModelType,
			ModelName: sess.ModelName,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		}
	}
	return res, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	res := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, msg := range messages {
		res[i] = &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}
	}
	return res, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, sessionId); err != nil {
		uow.Rollback()
		return fmt.Errorf("delete session messages: %w", err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		uow.Rollback()
		return fmt.Errorf("delete session: %w", err)
	}

	return uow.Commit()
}

func (s *chatService) Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	return s.exchange(ctx, request, nil)
}

// ChatStream forwards deltas to onDelta as the model produces them and
// still persists the finished exchange.
func (s *chatService) ChatStream(ctx context.Context, request *dto.ChatRequest, onDelta func(delta string) error) (*dto.ChatResponse, error) {
	return s.exchange(ctx, request, onDelta)
}

func (s *chatService) exchange(ctx context.Context, request *dto.ChatRequest, onDelta func(delta string) error) (*dto.ChatResponse, error) {
	provider, err := s.modelService.Resolve(request.ModelType, request.ModelName)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, len(request.Messages))
	for i, m := range request.Messages {
		history[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	var opts []llm.Option
	if request.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*request.Temperature))
	}
	if request.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(request.MaxTokens))
	}

	var content string
	if onDelta != nil {
		content, err = provider.ChatStream(ctx, history, llm.StreamHandler(onDelta), opts...)
	} else {
		content, err = provider.Chat(ctx, history, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("model exchange failed: %w", err)
	}

	sessionId, err := s.persistExchange(ctx, request, content)
	if err != nil {
		// The reply already exists, losing it over a storage hiccup would
		// be worse than a gap in history
		s.logger.Error("ChatService", "Failed to persist exchange", map[string]interface{}{"error": err.Error()})
	}

	return &dto.ChatResponse{
		ChatSessionId: sessionId,
		Model:         provider.Info().Name,
		Content:       content,
	}, nil
}

// persistExchange stores the last user message and the reply, creating a
// session on the fly when the request does not name one.
func (s *chatService) persistExchange(ctx context.Context, request *dto.ChatRequest, reply string) (uuid.UUID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	var sessionId uuid.UUID
	if request.ChatSessionId != nil {
		sessionId = *request.ChatSessionId
	} else {
		lastUser := request.Messages[len(request.Messages)-1]
		session := &entity.ChatSession{
			Title:     titleFromQuery(lastUser.Content),
			ModelType: request.ModelType,
			ModelName: request.ModelName,
		}
		if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
			return uuid.Nil, err
		}
		sessionId = session.Id
	}

	lastUser := request.Messages[len(request.Messages)-1]
	userMsg := &entity.ChatMessage{
		ChatSessionId: sessionId,
		Role:          "user",
		Content:       lastUser.Content,
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMsg); err != nil {
		return sessionId, err
	}

	assistantMsg := &entity.ChatMessage{
		ChatSessionId: sessionId,
		Role:          "assistant",
		Content:       reply,
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMsg); err != nil {
		return sessionId, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewChatMessageCreated(sessionId.String(), "assistant")); err != nil {
			s.logger.Warn("ChatService", "Failed to publish chat event", map[string]interface{}{"error": err.Error()})
		}
	}

	return sessionId, nil
}

func titleFromQuery(query string) string {
	title := strings.TrimSpace(query)
	if len(title) > 64 {
		title = title[:64]
	}
	if title == "" {
		title = "New chat"
	}
	return title
}
