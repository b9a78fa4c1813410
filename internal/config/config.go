// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// ParseEnvironment normalises v into one of the known environments.
// Unknown values fall back to Development.
func ParseEnvironment(v string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(v))) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	FrontendURL        string        `envconfig:"FRONTEND_URL"`
	Env                string        `envconfig:"APP_ENV" default:"development"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	MaxRequestBodySize int64         `envconfig:"MAX_REQUEST_BODY_SIZE" default:"1048576"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	Agent        AgentConfig
	Ticket       TicketConfig
	Store        StoreConfig
	Conversation ConversationConfig
	RateLimit    RateLimitConfig
}

// AgentConfig identifies the remote conversational agent. Loaded once at start and
// never mutated.
type AgentConfig struct {
	OrchestrationID string        `envconfig:"ORCHESTRATION_ID"`
	HostURL         string        `envconfig:"IBM_HOST"`
	AgentID         string        `envconfig:"AGENT_ID"`
	APIKey          string        `envconfig:"WXO_API_KEY"`
	TokenURL        string        `envconfig:"IAM_TOKEN_URL" default:"https://iam.cloud.ibm.com/identity/token"`
	HTTPTimeout     time.Duration `envconfig:"AGENT_HTTP_TIMEOUT" default:"60s"`
}

// TicketConfig configures the ticket-creation endpoint and request defaults.
type TicketConfig struct {
	URL             string `envconfig:"TICKET_API_URL"`
	AssignmentGroup string `envconfig:"TICKET_ASSIGNMENT_GROUP"`
	Category        string `envconfig:"TICKET_CATEGORY"`
	Urgency         string `envconfig:"TICKET_URGENCY" default:"3"`
	Impact          string `envconfig:"TICKET_IMPACT" default:"3"`
	Caller          string `envconfig:"TICKET_CALLER"`
	CatalogPath     string `envconfig:"TICKET_CATALOG_PATH"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend      string        `envconfig:"STORE_BACKEND" default:"sqlite"`
	DBPath       string        `envconfig:"DB_PATH" default:"./data/helpdesk.db"`
	RedisURL     string        `envconfig:"REDIS_URL"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
}

// ConversationConfig controls how long conversation bindings survive.
type ConversationConfig struct {
	TTL           time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"CONVERSATION_SWEEP_INTERVAL" default:"5m"`
}

// RateLimitConfig throttles chat messages per anonymous user.
type RateLimitConfig struct {
	RequestsPerWindow int           `envconfig:"CHAT_RATE_LIMIT" default:"20"`
	WindowDuration    time.Duration `envconfig:"CHAT_RATE_WINDOW" default:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
// Agent settings are optional: without them the service runs unconfigured.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL cannot be empty when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Conversation.TTL <= 0 {
		return fmt.Errorf("CONVERSATION_TTL must be > 0")
	}
	if c.Conversation.SweepInterval <= 0 {
		return fmt.Errorf("CONVERSATION_SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT and CHAT_RATE_WINDOW must be > 0")
	}
	return nil
}

// Environment returns the parsed deployment environment.
func (c *Config) Environment() Environment {
	return ParseEnvironment(c.Env)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.Environment() != Development {
		return false
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AgentConfigured reports whether the agent settings needed to attempt a call are present.
func (c *Config) AgentConfigured() bool {
	return c.Agent.APIKey != "" && c.Agent.AgentID != "" && c.Agent.HostURL != ""
}

// TicketsEnabled reports whether a ticket endpoint is configured.
func (c *Config) TicketsEnabled() bool {
	return c.Ticket.URL != ""
}
