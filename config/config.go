package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backend selects what the engines talk to.
type Backend string

const (
	BackendMock   Backend = "mock"
	BackendDynamo Backend = "dynamo"
	BackendHTTP   Backend = "http"
)

// Config holds the service configuration.
// Environment variables are parsed from the VIBIN_ prefix.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Backend Backend `envconfig:"BACKEND" default:"mock"`

	// HTTP backend
	APIBaseURL  string        `envconfig:"API_BASE_URL" default:"http://localhost:8081"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`

	// AWS
	AWSRegion         string `envconfig:"AWS_REGION" default:"us-east-1"`
	S3BucketName      string `envconfig:"S3_BUCKET_NAME" default:""`
	UsersTable        string `envconfig:"USERS_TABLE" default:"Users"`
	InteractionsTable string `envconfig:"INTERACTIONS_TABLE" default:"Interactions"`
	MatchesTable      string `envconfig:"MATCHES_TABLE" default:"Matches"`
	MessagesTable     string `envconfig:"MESSAGES_TABLE" default:"Messages"`
	MessageLimit      int32  `envconfig:"MESSAGE_LIMIT" default:"100"`

	// Presentation timing
	MatchHold     time.Duration `envconfig:"MATCH_HOLD" default:"2500ms"`
	LikeHold      time.Duration `envconfig:"LIKE_HOLD" default:"600ms"`
	TypingTimeout time.Duration `envconfig:"TYPING_TIMEOUT" default:"8s"`

	// Sessions unused for this long are closed. Zero keeps them forever.
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`

	// Mock backend
	MockSeed       int64         `envconfig:"MOCK_SEED" default:"42"`
	MockCandidates int           `envconfig:"MOCK_CANDIDATES" default:"12"`
	MockMatchRate  float64       `envconfig:"MOCK_MATCH_RATE" default:"0.5"`
	MockReplyDelay time.Duration `envconfig:"MOCK_REPLY_DELAY" default:"2s"`
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMock, BackendDynamo, BackendHTTP:
	default:
		return fmt.Errorf("unsupported BACKEND: %s", c.Backend)
	}
	if c.MatchHold < 0 || c.LikeHold < 0 || c.TypingTimeout < 0 || c.MockReplyDelay < 0 || c.SessionIdleTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MockMatchRate < 0 || c.MockMatchRate > 1 {
		return fmt.Errorf("MOCK_MATCH_RATE must be within [0, 1], got %v", c.MockMatchRate)
	}
	if c.MessageLimit <= 0 {
		return fmt.Errorf("MESSAGE_LIMIT must be > 0")
	}
	if c.Backend == BackendHTTP && c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required for the http backend")
	}
	return nil
}

// Load reads the configuration from VIBIN_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("VIBIN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
