// Package config provides configuration for the lead nurturing service.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/queue"
	pkgredis "github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/redis"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:leadnurture.db?cache=shared&mode=rwc"`

	// Uploaded brochures are written here before indexing.
	BrochureUploadDir string `envconfig:"BROCHURE_UPLOAD_DIR" default:"media/brochures"`

	Auth      AuthConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Agent     AgentConfig
	Email     EmailConfig
	WhatsApp  WhatsAppConfig

	// Infrastructure
	Redis pkgredis.Config
	Queue queue.Config `envconfig:"AMQP"`
}

// AuthConfig configures JWT issuance.
type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET" default:"change-me"`
	AccessTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"5m"`
	RefreshTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"24h"`
}

// LLMConfig selects the chat model provider and the per-role models.
type LLMConfig struct {
	// Provider is gemini, litellm or mock.
	Provider string `envconfig:"LLM_PROVIDER" default:"gemini"`
	APIKey   string `envconfig:"GOOGLE_API_KEY"`
	BaseURL  string `envconfig:"GEMINI_BASE_URL"`

	LiteLLMURL    string        `envconfig:"LITELLM_URL" default:"http://localhost:4000"`
	LiteLLMAPIKey string        `envconfig:"LITELLM_API_KEY"`
	Timeout       time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	RouterModel          string `envconfig:"AGENT_ROUTER_MODEL" default:"gemini-2.0-flash"`
	DocumentQueryModel   string `envconfig:"DOCUMENT_QUERY_MODEL" default:"gemini-2.0-flash"`
	PersonalizationModel string `envconfig:"PERSONALIZATION_MODEL" default:"gemini-2.0-flash"`
	SQLModel             string `envconfig:"T2SQL_MODEL" default:"gemini-2.0-flash"`
	MaxTokens            int    `envconfig:"LLM_MAX_TOKENS" default:"2048"`
}

// EmbeddingConfig configures brochure embeddings.
type EmbeddingConfig struct {
	// Provider is gemini or hashing.
	Provider   string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	Model      string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	Dimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	BatchSize  int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"64"`
}

// AgentConfig tunes retrieval, text-to-SQL and thread memory.
type AgentConfig struct {
	RetrievalLimit    int           `envconfig:"RAG_RETRIEVAL_LIMIT" default:"4"`
	DefaultCollection string        `envconfig:"RAG_DEFAULT_COLLECTION" default:"projects"`
	SQLMaxRows        int           `envconfig:"T2SQL_MAX_ROWS" default:"200"`
	ThreadTTL         time.Duration `envconfig:"AGENT_THREAD_TTL" default:"72h"`
	ThreadMaxTurns    int           `envconfig:"AGENT_THREAD_MAX_TURNS" default:"50"`
	GenerationWorkers int           `envconfig:"CAMPAIGN_GENERATION_WORKERS" default:"4"`
}

// EmailConfig configures SMTP outreach.
type EmailConfig struct {
	Host          string `envconfig:"EMAIL_HOST" default:"localhost"`
	Port          int    `envconfig:"EMAIL_PORT" default:"587"`
	User          string `envconfig:"EMAIL_HOST_USER"`
	Password      string `envconfig:"EMAIL_HOST_PASSWORD"`
	UseSSL        bool   `envconfig:"EMAIL_USE_SSL" default:"false"`
	From          string `envconfig:"DEFAULT_FROM_EMAIL" default:"noreply@leadnurture.local"`
	OverrideEmail string `envconfig:"CAMPAIGN_EMAIL_OVERRIDE"`
}

// HasCredentials reports whether SMTP credentials are present.
func (e EmailConfig) HasCredentials() bool {
	return e.User != "" && e.Password != ""
}

// WhatsAppConfig configures the Evolution API sender.
type WhatsAppConfig struct {
	BaseURL        string `envconfig:"EVOLUTION_API_BASE_URL"`
	APIKey         string `envconfig:"EVOLUTION_API_KEY"`
	Instance       string `envconfig:"EVOLUTION_API_INSTANCE"`
	OverrideNumber string `envconfig:"WHATSAPP_NUMBER_OVERRIDE"`
}

// Enabled reports whether the Evolution API is configured.
func (w WhatsAppConfig) Enabled() bool {
	return w.BaseURL != "" && w.Instance != ""
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// Env returns the parsed deployment environment.
func (c *Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// MockMode reports whether deterministic mock models are in use.
func (c *Config) MockMode() bool {
	return c.LLM.Provider == "mock"
}
