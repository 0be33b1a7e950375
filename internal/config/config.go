package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Models   ModelConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	PersistTopicName   string // Snapshot persistence topic
}

type DatabaseConfig struct {
	Connection string
}

type ModelConfig struct {
	OpenAIKey     string
	OpenAIBase    string
	AnthropicKey  string
	AnthropicBase string
	DeepseekKey   string
	DeepseekBase  string
	OllamaBase    string

	DefaultType string // "openai", "anthropic", "deepseek", "ollama"
	DefaultName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			PersistTopicName:   getEnv("PERSIST_DEBUG_RUN_TOPIC_NAME", "PERSIST_DEBUG_RUN"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Models: ModelConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBase:    getEnv("OPENAI_API_BASE", ""),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicBase: getEnv("ANTHROPIC_API_BASE", ""),
			DeepseekKey:   getEnv("DEEPSEEK_API_KEY", ""),
			DeepseekBase:  getEnv("DEEPSEEK_API_BASE", "https://api.deepseek.com/v1"),
			OllamaBase:    getEnv("OLLAMA_API_BASE", "http://localhost:11434"),
			DefaultType:   getEnv("DEFAULT_MODEL_TYPE", "ollama"),
			DefaultName:   getEnv("DEFAULT_MODEL_NAME", "qwen2.5-coder"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
