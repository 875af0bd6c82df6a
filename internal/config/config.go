package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"essay-coach-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Keys     APIKeys
	Ai       AIConfig
	Chat     ChatConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	Timezone           string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type APIKeys struct {
	OpenAI        string
	OpenAIBaseURL string
}

type AIConfig struct {
	LLMProvider         string // "openai" or "ollama"
	LLMModel            string
	OllamaBaseURL       string
	Timeout             time.Duration
	CoachingMaxTokens   int
	ReviewMaxTokens     int
	CoachingWindowTurns int
	ReviewWindowTurns   int
	ReviewKeywords      []string
	TitleWords          int
}

type ChatConfig struct {
	ConversationsPerPage int
	SessionTTL           time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int
}

type CacheConfig struct {
	Driver          string // "memory" or "redis"
	ConversationTTL time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Println("Warning: JWT_SECRET is not set, using an insecure default")
		jwtSecret = "default_secret"
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			Timezone:           getEnv("APP_TIMEZONE", "Europe/London"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Keys: APIKeys{
			OpenAI:        getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "openai"),
			LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:             getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			CoachingMaxTokens:   getEnvAsInt("COACHING_MAX_TOKENS", 400),
			ReviewMaxTokens:     getEnvAsInt("REVIEW_MAX_TOKENS", 5000),
			CoachingWindowTurns: getEnvAsInt("COACHING_WINDOW_TURNS", 6),
			ReviewWindowTurns:   getEnvAsInt("REVIEW_WINDOW_TURNS", 10),
			ReviewKeywords:      getEnvAsList("REVIEW_KEYWORDS", constant.DefaultReviewKeywords),
			TitleWords:          getEnvAsInt("TITLE_WORDS", 4),
		},
		Chat: ChatConfig{
			ConversationsPerPage: getEnvAsInt("CONVERSATIONS_PER_PAGE", 10),
			SessionTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			RateLimitRPS:         getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 1),
			RateLimitBurst:       getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),
		},
		Cache: CacheConfig{
			Driver:          getEnv("CACHE_DRIVER", "memory"),
			ConversationTTL: getEnvAsDuration("CONVERSATION_CACHE_TTL", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	var out []string
	for _, item := range strings.Split(strValue, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
