package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Environment   string
	Gateway       GatewayConfig
	Models        ModelsConfig
	Retry         RetryConfig
	Ops           OpsConfig
	Observability ObservabilityConfig
}

// GatewayConfig holds the connection configuration for the upstream model
// gateway (a LiteLLM-style chat-completion API brokering several models).
type GatewayConfig struct {
	BaseURL         string        `validate:"required,url"`
	APIKey          string        `validate:"required"`
	Timeout         time.Duration `validate:"gt=0"`
	MaxConns        int           `validate:"gt=0"`
	MaxIdleConns    int           `validate:"gt=0"`
	IdleConnTimeout time.Duration `validate:"gt=0"`
}

// ModelsConfig holds the candidate model configuration with fallback priority
type ModelsConfig struct {
	Primary     string  `validate:"required"`
	Secondary   string  `validate:"required"`
	MaxTokens   int     `validate:"gt=0,lte=32000"`
	Temperature float64 `validate:"gte=0,lte=2"`
}

// RetryConfig holds the per-model retry policy parameters
type RetryConfig struct {
	MaxAttempts    int           `validate:"gte=1"`
	InitialBackoff time.Duration `validate:"gt=0"`
	MaxBackoff     time.Duration `validate:"gtefield=InitialBackoff"`
	Multiplier     float64       `validate:"gte=1"`
	Jitter         float64       `validate:"gte=0,lte=1"`
}

// OpsConfig holds the operational HTTP server configuration
type OpsConfig struct {
	Enabled         bool
	Host            string
	Port            int `validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds logging and metrics configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json console"`
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists (ignored when absent)
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Gateway: GatewayConfig{
			BaseURL:         getEnv("GATEWAY_BASE_URL", "http://localhost:4000"),
			APIKey:          getEnv("GATEWAY_API_KEY", "sk-1234567890abcdef"),
			Timeout:         getEnvAsDuration("GATEWAY_TIMEOUT", 300*time.Second),
			MaxConns:        getEnvAsInt("GATEWAY_MAX_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("GATEWAY_MAX_IDLE_CONNS", 5),
			IdleConnTimeout: getEnvAsDuration("GATEWAY_IDLE_CONN_TIMEOUT", 90*time.Second),
		},
		Models: ModelsConfig{
			Primary:     getEnv("PRIMARY_MODEL", "openai-o3"),
			Secondary:   getEnv("SECONDARY_MODEL", "google-gemini-2.5-pro"),
			MaxTokens:   getEnvAsInt("MAX_TOKENS", 32000),
			Temperature: getEnvAsFloat("TEMPERATURE", 0.1),
		},
		Retry: RetryConfig{
			MaxAttempts:    getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvAsDuration("RETRY_INITIAL_BACKOFF", 4*time.Second),
			MaxBackoff:     getEnvAsDuration("RETRY_MAX_BACKOFF", 10*time.Second),
			Multiplier:     getEnvAsFloat("RETRY_MULTIPLIER", 2.0),
			Jitter:         getEnvAsFloat("RETRY_JITTER", 0),
		},
		Ops: OpsConfig{
			Enabled:         getEnvAsBool("OPS_SERVER_ENABLED", true),
			Host:            getEnv("OPS_SERVER_HOST", "127.0.0.1"),
			Port:            getEnvAsInt("OPS_SERVER_PORT", 8090),
			ReadTimeout:     getEnvAsDuration("OPS_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("OPS_SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("OPS_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all configuration fields are within bounds
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Models.Primary == c.Models.Secondary {
		return fmt.Errorf("primary and secondary models must differ")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the ops HTTP server address
func (c *OpsConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns an environment variable as an integer or a default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvAsBool returns an environment variable as a boolean or a default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsFloat returns an environment variable as a float or a default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration returns an environment variable as a duration or a default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
