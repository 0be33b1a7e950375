package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"draco-chat-be/internal/config"
	"draco-chat-be/internal/dto"
	"draco-chat-be/internal/pkg/logger"
	"draco-chat-be/internal/repository/memory"
	"draco-chat-be/pkg/llm"
	"draco-chat-be/pkg/llm/factory"
)

const (
	catalogCacheKey = "draco:model_catalog"
	catalogCacheTTL = 5 * time.Minute
)

// IModelService resolves providers and serves the model catalog.
type IModelService interface {
	GetCatalog(ctx context.Context) (*dto.ModelsResponse, error)
	Resolve(modelType, modelName string) (llm.LLMProvider, error)
}

type modelService struct {
	cfg           *config.ModelConfig
	providerCache *memory.ProviderCache
	rdb           *redis.Client
	logger        logger.ILogger
}

func NewModelService(
	cfg *config.ModelConfig,
	providerCache *memory.ProviderCache,
	rdb *redis.Client,
	log logger.ILogger,
) IModelService {
	return &modelService{
		cfg:           cfg,
		providerCache: providerCache,
		rdb:           rdb,
		logger:        log,
	}
}

func (s *modelService) credentials() factory.Credentials {
	return factory.Credentials{
		OpenAIKey:     s.cfg.OpenAIKey,
		OpenAIBase:    s.cfg.OpenAIBase,
		AnthropicKey:  s.cfg.AnthropicKey,
		AnthropicBase: s.cfg.AnthropicBase,
		DeepseekKey:   s.cfg.DeepseekKey,
		DeepseekBase:  s.cfg.DeepseekBase,
		OllamaBase:    s.cfg.OllamaBase,
	}
}

// Resolve returns a cached provider instance for the type/model pair,
// creating one on first use. Empty arguments fall back to the configured
// default model.
func (s *modelService) Resolve(modelType, modelName string) (llm.LLMProvider, error) {
	if modelType == "" {
		modelType = s.cfg.DefaultType
	}
	if modelName == "" {
		modelName = s.cfg.DefaultName
	}

	if provider, found := s.providerCache.Get(modelType, modelName); found {
		return provider, nil
	}

	provider, err := factory.NewLLMProvider(modelType, modelName, s.credentials())
	if err != nil {
		return nil, err
	}
	s.providerCache.Set(modelType, modelName, provider)
	return provider, nil
}

// GetCatalog lists every known model grouped by provider type. The
// assembled catalog is cached in Redis since the Ollama daemon is probed
// live.
func (s *modelService) GetCatalog(ctx context.Context) (*dto.ModelsResponse, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	models := factory.AvailableModels(ctx, s.credentials())

	grouped := make(map[string][]dto.ModelDTO)
	for _, m := range models {
		grouped[m.Type] = append(grouped[m.Type], dto.ModelDTO{
			Name:     m.Name,
			Type:     m.Type,
			Provider: m.Provider,
		})
	}

	res := &dto.ModelsResponse{
		Default: dto.ModelDTO{
			Name:     s.cfg.DefaultName,
			Type:     s.cfg.DefaultType,
			Provider: providerLabel(s.cfg.DefaultType),
		},
		Models: grouped,
	}

	s.writeCache(ctx, res)
	return res, nil
}

func (s *modelService) readCache(ctx context.Context) *dto.ModelsResponse {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var res dto.ModelsResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}
	return &res
}

func (s *modelService) writeCache(ctx context.Context, res *dto.ModelsResponse) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, catalogCacheKey, raw, catalogCacheTTL).Err(); err != nil {
		s.logger.Warn("ModelService", "Failed to cache model catalog", map[string]interface{}{"error": err.Error()})
	}
}

func providerLabel(modelType string) string {
	switch modelType {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	case "deepseek":
		return "DeepSeek"
	case "ollama":
		return "Ollama"
	default:
		return modelType
	}
}
