package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	LLM          LLMConfig
	ERP          ERPConfig
	Outbound     OutboundConfig
	Conversation ConversationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines admin authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminUser             string
	AdminPasswordHash     string
}

// LLMConfig configures the model-inference capability.
type LLMConfig struct {
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float64
	TimeoutSeconds int
}

// ERPConfig points at the backend-of-record service.
type ERPConfig struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// OutboundConfig configures the channel delivery sender.
type OutboundConfig struct {
	BaseURL     string
	Token       string
	VerifyToken string
	MaxRetries  int
	BackoffMS   int
}

// ConversationConfig bounds the pipeline's conversational memory and the
// escalation deduplication window.
type ConversationConfig struct {
	HistoryTurns            int
	HistoryTTLMinutes       int
	EscalationWindowMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "cobranza-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminUser:             getEnv("AUTH_ADMIN_USER", "admin"),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
		},
		LLM: LLMConfig{
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gemini-2.5-flash"),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 1024),
			Temperature:    temperature,
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 20),
		},
		ERP: ERPConfig{
			BaseURL:        getEnv("ERP_BASE_URL", "http://127.0.0.1:8001"),
			APIKey:         os.Getenv("ERP_API_KEY"),
			TimeoutSeconds: getEnvAsInt("ERP_TIMEOUT_SECONDS", 10),
		},
		Outbound: OutboundConfig{
			BaseURL:     getEnv("OUTBOUND_BASE_URL", ""),
			Token:       os.Getenv("OUTBOUND_TOKEN"),
			VerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", "dev-verify-token"),
			MaxRetries:  getEnvAsInt("OUTBOUND_MAX_RETRIES", 3),
			BackoffMS:   getEnvAsInt("OUTBOUND_BACKOFF_MS", 250),
		},
		Conversation: ConversationConfig{
			HistoryTurns:            getEnvAsInt("CONVERSATION_HISTORY_TURNS", 5),
			HistoryTTLMinutes:       getEnvAsInt("CONVERSATION_HISTORY_TTL_MINUTES", 1440),
			EscalationWindowMinutes: getEnvAsInt("ESCALATION_WINDOW_MINUTES", 15),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the ERP client timeout.
func (e ERPConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Backoff returns the base delay between outbound retries.
func (o OutboundConfig) Backoff() time.Duration {
	if o.BackoffMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(o.BackoffMS) * time.Millisecond
}

// HistoryTTL returns how long an idle conversation window is retained.
func (c ConversationConfig) HistoryTTL() time.Duration {
	if c.HistoryTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.HistoryTTLMinutes) * time.Minute
}

// EscalationWindow returns the deduplication window for ticket creation.
func (c ConversationConfig) EscalationWindow() time.Duration {
	if c.EscalationWindowMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.EscalationWindowMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
