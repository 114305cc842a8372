package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Composer ComposerConfig
	Tracing  TracingConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// UpstreamConfig points at the content API that owns notebooks, sources,
// notes, context building and podcast generation.
type UpstreamConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type ComposerConfig struct {
	SessionTTL     time.Duration // idle time before a session is discarded
	Concurrency    int           // parallel context-build calls per pass
	AggregateTopic string        // in-process topic for live aggregate updates
	MaxSessions    int           // open sessions allowed per user
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

type APIKeys struct {
	JwtSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/composer_ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("CONTENT_API_BASE_URL", "http://localhost:5055"),
			Token:   getEnv("CONTENT_API_TOKEN", ""),
			Timeout: getEnvAsDuration("CONTENT_API_TIMEOUT", 60*time.Second),
		},
		Composer: ComposerConfig{
			SessionTTL:     getEnvAsDuration("COMPOSER_SESSION_TTL", 30*time.Minute),
			Concurrency:    getEnvAsInt("COMPOSER_CONCURRENCY", 4),
			AggregateTopic: getEnv("COMPOSER_AGGREGATE_TOPIC", "COMPOSER_AGGREGATE_UPDATED"),
			MaxSessions:    getEnvAsInt("COMPOSER_MAX_SESSIONS", 5),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Keys: APIKeys{
			JwtSecret: getEnv("JWT_SECRET", ""),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
