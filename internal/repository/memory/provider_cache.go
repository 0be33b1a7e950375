package memory

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	"draco-chat-be/pkg/llm"
)

// ProviderCache keeps one provider instance per type/model pair so repeated
// requests do not rebuild HTTP clients.
type ProviderCache struct {
	cache *cache.Cache
}

func NewProviderCache() *ProviderCache {
	return &ProviderCache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func CacheKey(modelType, modelName string) string {
	return fmt.Sprintf("%s_%s", modelType, modelName)
}

func (c *ProviderCache) Get(modelType, modelName string) (llm.LLMProvider, bool) {
	if x, found := c.cache.Get(CacheKey(modelType, modelName)); found {
		return x.(llm.LLMProvider), true
	}
	return nil, false
}

func (c *ProviderCache) Set(modelType, modelName string, provider llm.LLMProvider) {
	c.cache.Set(CacheKey(modelType, modelName), provider, cache.NoExpiration)
}
