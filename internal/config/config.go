package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"rag-lab-ui/pkg/ragclient"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Session SessionConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string `validate:"required,numeric"`
	Environment        string `validate:"required"`
	LogFilePath        string `validate:"required"`
	HubLogFilePath     string `validate:"required"`
	CorsAllowedOrigins string
	NatsURL            string `validate:"omitempty,url"`
	RedisURL           string
}

// BackendConfig is resolved once at startup and injected into both
// controllers.
type BackendConfig struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gte=0"`
}

type SessionConfig struct {
	TTL          time.Duration `validate:"gt=0"`
	SettlePolicy string        `validate:"oneof=last-triggered last-settled"`
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/raglab.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/hub.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("RAG_API_BASE", ragclient.DefaultBaseURL),
			Timeout: time.Duration(getEnvAsInt("RAG_API_TIMEOUT_SECONDS", 0)) * time.Second,
		},
		Session: SessionConfig{
			TTL:          time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
			SettlePolicy: getEnv("SETTLE_POLICY", "last-triggered"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// Validate checks the loaded values once, before anything is wired.
func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []interface{}{c.App, c.Backend, c.Session} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// ValidateWatcher is Validate for processes that only consume the NATS
// mirror, where NATS_URL is mandatory.
func (c *Config) ValidateWatcher() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.App.NatsURL == "" {
		return fmt.Errorf("invalid configuration: NATS_URL is not set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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
