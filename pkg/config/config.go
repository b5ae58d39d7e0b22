package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Postgres
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Gmail / Google Cloud
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleCredentials  string
	GoogleProjectID    string
	GooglePubSubTopic  string
	WatchedAddress     string

	// AI provider
	AIProvider    string
	GeminiApiKey  string
	OllamaBaseURL string
	OllamaModel   string

	// Telegram operator chat
	TelegramBotToken string
	TelegramChatID   string

	// QuickBooks
	QuickBooksBaseURL     string
	QuickBooksRealmID     string
	QuickBooksAccessToken string

	// Deduplication
	RedisURL string
	DedupTTL time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	dedupTTL := 5 * time.Minute
	if ttl := os.Getenv("DEDUP_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			dedupTTL = parsed
		}
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "signdesk"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		WatchedAddress:     getEnv("WATCHED_ADDRESS", ""),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		QuickBooksBaseURL:     getEnv("QUICKBOOKS_BASE_URL", "https://sandbox-quickbooks.api.intuit.com"),
		QuickBooksRealmID:     getEnv("QUICKBOOKS_REALM_ID", ""),
		QuickBooksAccessToken: getEnv("QUICKBOOKS_ACCESS_TOKEN", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		DedupTTL: dedupTTL,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
