package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL         string
	LLMBaseURL          string
	LLMModelName        string
	LLMAPIKey           string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int
	ChunkMaxTokens      int
	ChunkOverlapTokens  int
	EmbedBatchSize      int
	DiscordToken        string
	DiscordGuildID      string
	DefaultCollection   string
	FilterLevel         string
	CacheSize           int
	CacheTTLSeconds     int
	APIPort             string
	LogLevel            string
	LogFormat           string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DiscordToken:       getEnv("DISCORD_TOKEN", ""),
		DiscordGuildID:     getEnv("DISCORD_GUILD_ID", ""),
		DefaultCollection:  getEnv("DEFAULT_COLLECTION", "documents"),
		FilterLevel:        getEnv("FILTER_LEVEL", "moderate"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// Must match the output vector size of the embeddings model.
	// text-embedding-3-small produces 1536 dimensions.
	vectorSize, err := getEnvInt("EMBEDDING_VECTOR_SIZE", 1536)
	if err != nil {
		return nil, err
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	if cfg.ChunkMaxTokens, err = getEnvInt("CHUNK_MAX_TOKENS", 500); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlapTokens, err = getEnvInt("CHUNK_OVERLAP_TOKENS", 50); err != nil {
		return nil, err
	}
	if cfg.EmbedBatchSize, err = getEnvInt("EMBED_BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getEnvInt("CACHE_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.CacheTTLSeconds, err = getEnvInt("CACHE_TTL_SECONDS", 3600); err != nil {
		return nil, err
	}

	if cfg.ChunkOverlapTokens >= cfg.ChunkMaxTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be less than CHUNK_MAX_TOKENS (%d)",
			cfg.ChunkOverlapTokens, cfg.ChunkMaxTokens)
	}

	switch cfg.FilterLevel {
	case "conservative", "moderate", "liberal":
	default:
		return nil, fmt.Errorf("FILTER_LEVEL must be one of conservative, moderate, liberal; got %q", cfg.FilterLevel)
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
