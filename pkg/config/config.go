package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Push authentication modes for the webhook ingress.
const (
	PushAuthOIDC     = "oidc"
	PushAuthHMAC     = "hmac"
	PushAuthDisabled = "disabled"
)

// Cursor store backends.
const (
	CursorBackendMemory   = "memory"
	CursorBackendGCS      = "gcs"
	CursorBackendPostgres = "postgres"
)

// insecureJWTSecret is the well-known sample value; tokens signed with it are forgeable.
const insecureJWTSecret = "your-secret-key-change-in-production"

const minJWTSecretLen = 32

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Gmail OAuth (single mailbox)
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRefreshToken string `envconfig:"GOOGLE_REFRESH_TOKEN"`
	MailboxAddress     string `envconfig:"MAILBOX_ADDRESS"`

	// Pub/Sub
	GoogleProjectID    string `envconfig:"GOOGLE_PROJECT_ID"`
	GoogleCredentials  string `envconfig:"GOOGLE_CREDENTIALS"`
	PubSubTopic        string `envconfig:"PUBSUB_TOPIC" default:"gmail-updates"`
	PubSubSubscription string `envconfig:"PUBSUB_SUBSCRIPTION"`
	PubSubPullEnabled  bool   `envconfig:"PUBSUB_PULL_ENABLED" default:"false"`

	// Push ingress authentication
	PushAuthMode       string `envconfig:"PUSH_AUTH_MODE" default:"oidc"`
	PushAudience       string `envconfig:"PUSH_AUDIENCE"`
	PushExpectedIssuer string `envconfig:"PUSH_EXPECTED_ISSUER" default:"https://accounts.google.com"`
	PushExpectedEmail  string `envconfig:"PUSH_EXPECTED_EMAIL"`
	PushHMACSecret     string `envconfig:"PUSH_HMAC_SECRET"`

	// Admin API
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	JWTAccessExpiry   time.Duration `envconfig:"JWT_ACCESS_EXPIRY" default:"15m"`

	// Cursor persistence
	CursorBackend string `envconfig:"CURSOR_BACKEND" default:"memory"`
	CursorBucket  string `envconfig:"CURSOR_BUCKET"`
	CursorKey     string `envconfig:"CURSOR_KEY" default:"sync_cursor.json"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	// Generation
	AIProvider        string        `envconfig:"AI_PROVIDER" default:"auto"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OllamaBaseURL     string        `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	OllamaModel       string        `envconfig:"OLLAMA_MODEL" default:"llama3"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`

	// Knowledge base
	ChromaURL        string  `envconfig:"CHROMA_URL"`
	ChromaAPIKey     string  `envconfig:"CHROMA_API_KEY"`
	ChromaTenant     string  `envconfig:"CHROMA_TENANT"`
	ChromaDatabase   string  `envconfig:"CHROMA_DATABASE"`
	ChromaCollection string  `envconfig:"CHROMA_COLLECTION" default:"knowledge"`
	KBMaxDistance    float64 `envconfig:"KB_MAX_DISTANCE" default:"0"`

	// Pipeline
	DraftLabel          string        `envconfig:"DRAFT_LABEL" default:"AGENT_DRAFTED"`
	PipelineWorkers     int           `envconfig:"PIPELINE_WORKERS" default:"4"`
	PipelineMaxAttempts int           `envconfig:"PIPELINE_MAX_ATTEMPTS" default:"3"`
	RetryInterval       time.Duration `envconfig:"RETRY_INTERVAL" default:"5m"`
	RoundTimeout        time.Duration `envconfig:"ROUND_TIMEOUT" default:"10m"`

	// Watch lease
	WatchRenewBefore  time.Duration `envconfig:"WATCH_RENEW_BEFORE" default:"24h"`
	SchedulerInterval time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1m"`

	// Operator notifications
	FirebaseCredentials string   `envconfig:"FIREBASE_CREDENTIALS"`
	FCMDeviceTokens     []string `envconfig:"FCM_DEVICE_TOKENS"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes enum-like settings and rejects unknown values.
func (c *Config) Validate() error {
	c.PushAuthMode = strings.ToLower(strings.TrimSpace(c.PushAuthMode))
	switch c.PushAuthMode {
	case PushAuthOIDC:
		if c.PushAudience == "" || c.PushExpectedEmail == "" {
			return fmt.Errorf("PUSH_AUDIENCE and PUSH_EXPECTED_EMAIL are required for oidc push auth")
		}
	case PushAuthHMAC:
		if c.PushHMACSecret == "" || c.PushExpectedEmail == "" {
			return fmt.Errorf("PUSH_HMAC_SECRET and PUSH_EXPECTED_EMAIL are required for hmac push auth")
		}
	case PushAuthDisabled:
	default:
		return fmt.Errorf("unsupported PUSH_AUTH_MODE: %s", c.PushAuthMode)
	}

	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET must not be the placeholder value")
	}
	if c.AdminPasswordHash != "" && len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET of at least %d bytes is required when ADMIN_PASSWORD_HASH is set", minJWTSecretLen)
	}

	c.CursorBackend = strings.ToLower(strings.TrimSpace(c.CursorBackend))
	switch c.CursorBackend {
	case CursorBackendMemory:
	case CursorBackendGCS:
		if c.CursorBucket == "" {
			return fmt.Errorf("CURSOR_BUCKET is required for gcs cursor backend")
		}
	case CursorBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres cursor backend")
		}
	default:
		return fmt.Errorf("unsupported CURSOR_BACKEND: %s", c.CursorBackend)
	}

	if c.PipelineWorkers <= 0 {
		c.PipelineWorkers = 1
	}
	if c.PipelineMaxAttempts <= 0 {
		c.PipelineMaxAttempts = 1
	}
	if c.RoundTimeout <= 0 {
		c.RoundTimeout = 10 * time.Minute
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	return nil
}

// SubscriptionName returns the pull subscription, defaulting to "<topic>-sub".
func (c *Config) SubscriptionName() string {
	if c.PubSubSubscription != "" {
		return c.PubSubSubscription
	}
	return c.ShortTopicName() + "-sub"
}

// ShortTopicName strips the "projects/<p>/topics/" prefix from the topic if present.
func (c *Config) ShortTopicName() string {
	topic := c.PubSubTopic
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		topic = parts[len(parts)-1]
	}
	if topic == "" {
		topic = "gmail-updates"
	}
	return topic
}

// FullTopicName returns the fully-qualified topic resource name Gmail watch expects.
func (c *Config) FullTopicName() string {
	if strings.HasPrefix(c.PubSubTopic, "projects/") {
		return c.PubSubTopic
	}
	return fmt.Sprintf("projects/%s/topics/%s", c.GoogleProjectID, c.ShortTopicName())
}

// NewForTesting returns a config with defaults suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		Port:                "8080",
		LogLevel:            "debug",
		PubSubTopic:         "gmail-updates",
		PushAuthMode:        PushAuthHMAC,
		PushExpectedIssuer:  "https://accounts.google.com",
		PushExpectedEmail:   "push@test-project.iam.gserviceaccount.com",
		PushHMACSecret:      "test-push-secret",
		JWTSecret:           "test-jwt-secret-0123456789abcdef",
		JWTAccessExpiry:     15 * time.Minute,
		CursorBackend:       CursorBackendMemory,
		CursorKey:           "sync_cursor.json",
		AIProvider:          "auto",
		GenerationTimeout:   5 * time.Second,
		ChromaCollection:    "knowledge",
		DraftLabel:          "AGENT_DRAFTED",
		PipelineWorkers:     2,
		PipelineMaxAttempts: 3,
		RetryInterval:       time.Minute,
		RoundTimeout:        time.Minute,
		WatchRenewBefore:    24 * time.Hour,
		SchedulerInterval:   time.Minute,
	}
}
