package configs

import (
	"strings"
	"time"

	"rag-worker/cmd/defines"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configurations
	Server ServerConfig

	// Redis configurations
	MemoryDBRedisURL      string
	MemoryDBRedisUsername string
	MemoryDBRedisPassword string
	QueueName             string

	// Database configurations
	DbUser     string
	DbPassword string
	DbHost     string
	DbPort     string
	DbName     string
	DbSSLMode  string

	// Vector store configurations
	VectorBackend string // weaviate or qdrant

	WeaviateHost   string
	WeaviatePort   string
	WeaviateScheme string
	WeaviateClass  string

	QdrantAddr       string
	QdrantCollection string
	VectorDimensions int

	// Model configurations
	AI AIConfig

	// Pipeline configurations
	Pipeline PipelineConfig

	// JWT configurations
	JWT JWTConfig

	// Application configurations
	AppEnv   string
	LogLevel string
}

// ServerConfig holds server-related configurations
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// AIConfig holds the embedding and answer generation endpoints.
// Both speak the OpenAI-compatible API.
type AIConfig struct {
	EmbeddingHost  string
	EmbeddingModel string
	EmbeddingToken string

	LLMHost        string
	LLMModel       string
	LLMToken       string
	LLMTemperature float64
}

// PipelineConfig holds the ingestion and retrieval tuning knobs
type PipelineConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	ScraperTimeout   time.Duration
	ScraperRPS       float64
	ScraperUserAgent string
	PollInterval     time.Duration
	Backoff          time.Duration
}

// JWTConfig holds JWT-related configurations
type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // minutes
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_IDLE_TIMEOUT", 60)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("QUEUE_NAME", defines.DefaultQueueName)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "rag")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("VECTOR_BACKEND", "weaviate")
	viper.SetDefault("WEAVIATE_HOST", "localhost")
	viper.SetDefault("WEAVIATE_PORT", "8080")
	viper.SetDefault("WEAVIATE_SCHEME", "http")
	viper.SetDefault("WEAVIATE_CLASS", "KnowledgeChunk")
	viper.SetDefault("QDRANT_ADDR", "localhost:6334")
	viper.SetDefault("QDRANT_COLLECTION", "knowledge_chunks")
	viper.SetDefault("VECTOR_DIMENSIONS", 768)
	viper.SetDefault("EMBEDDING_HOST", "http://localhost:11434/v1")
	viper.SetDefault("EMBEDDING_MODEL", "nomic-embed-text")
	viper.SetDefault("EMBEDDING_TOKEN", "none")
	viper.SetDefault("LLM_HOST", "https://api.groq.com/openai/v1")
	viper.SetDefault("LLM_MODEL", "llama-3.1-8b-instant")
	viper.SetDefault("LLM_TOKEN", "none")
	viper.SetDefault("LLM_TEMPERATURE", 0.3)
	viper.SetDefault("CHUNK_SIZE", 1000)
	viper.SetDefault("CHUNK_OVERLAP", 200)
	viper.SetDefault("RETRIEVAL_TOP_K", 3)
	viper.SetDefault("SCRAPER_TIMEOUT", "30s")
	viper.SetDefault("SCRAPER_RPS", 1.0)
	viper.SetDefault("SCRAPER_USER_AGENT", "rag-worker/1.0")
	viper.SetDefault("QUEUE_POLL_INTERVAL", "1s")
	viper.SetDefault("QUEUE_BACKOFF", "5s")
	viper.SetDefault("JWT_SECRET", "your-super-secret-jwt-key-change-in-production")
	viper.SetDefault("JWT_ACCESS_TTL", 1440) // 1 day in minutes
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")

	return &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			ReadTimeout:  viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetInt("SERVER_IDLE_TIMEOUT"),
		},

		MemoryDBRedisURL:      viper.GetString("REDIS_URL"),
		MemoryDBRedisUsername: viper.GetString("REDIS_USERNAME"),
		MemoryDBRedisPassword: viper.GetString("REDIS_PASSWORD"),
		QueueName:             viper.GetString("QUEUE_NAME"),

		DbUser:     viper.GetString("DB_USER"),
		DbPassword: viper.GetString("DB_PASSWORD"),
		DbHost:     viper.GetString("DB_HOST"),
		DbPort:     viper.GetString("DB_PORT"),
		DbName:     viper.GetString("DB_NAME"),
		DbSSLMode:  viper.GetString("DB_SSLMODE"),

		VectorBackend:    strings.ToLower(viper.GetString("VECTOR_BACKEND")),
		WeaviateHost:     viper.GetString("WEAVIATE_HOST"),
		WeaviatePort:     viper.GetString("WEAVIATE_PORT"),
		WeaviateScheme:   viper.GetString("WEAVIATE_SCHEME"),
		WeaviateClass:    viper.GetString("WEAVIATE_CLASS"),
		QdrantAddr:       viper.GetString("QDRANT_ADDR"),
		QdrantCollection: viper.GetString("QDRANT_COLLECTION"),
		VectorDimensions: viper.GetInt("VECTOR_DIMENSIONS"),

		AI: AIConfig{
			EmbeddingHost:  viper.GetString("EMBEDDING_HOST"),
			EmbeddingModel: viper.GetString("EMBEDDING_MODEL"),
			EmbeddingToken: viper.GetString("EMBEDDING_TOKEN"),
			LLMHost:        viper.GetString("LLM_HOST"),
			LLMModel:       viper.GetString("LLM_MODEL"),
			LLMToken:       viper.GetString("LLM_TOKEN"),
			LLMTemperature: viper.GetFloat64("LLM_TEMPERATURE"),
		},

		Pipeline: PipelineConfig{
			ChunkSize:        viper.GetInt("CHUNK_SIZE"),
			ChunkOverlap:     viper.GetInt("CHUNK_OVERLAP"),
			TopK:             viper.GetInt("RETRIEVAL_TOP_K"),
			ScraperTimeout:   viper.GetDuration("SCRAPER_TIMEOUT"),
			ScraperRPS:       viper.GetFloat64("SCRAPER_RPS"),
			ScraperUserAgent: viper.GetString("SCRAPER_USER_AGENT"),
			PollInterval:     viper.GetDuration("QUEUE_POLL_INTERVAL"),
			Backoff:          viper.GetDuration("QUEUE_BACKOFF"),
		},

		JWT: JWTConfig{
			SecretKey:      viper.GetString("JWT_SECRET"),
			AccessTokenTTL: viper.GetInt("JWT_ACCESS_TTL"),
		},

		AppEnv:   viper.GetString("APP_ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
	}
}
