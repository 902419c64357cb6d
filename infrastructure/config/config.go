// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ServerAddress string
	Environment   string

	// Completion service
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	MaxOutputTokens   int
	Temperature       float64
	CompletionTimeout time.Duration

	// Refinement behavior: "lenient" echoes unchanged documents through
	// the pipeline, "strict" rejects requests with nothing to refine.
	RefinementPolicy string

	// Persistence
	StorageBackend string // "memory" or "dynamodb"
	AWSRegion      string
	DynamoDBTable  string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Logging and features
	LogLevel      string
	EnableCORS    bool
	EnableMetrics bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		MaxOutputTokens:   getEnvInt("MAX_OUTPUT_TOKENS", 8192),
		Temperature:       getEnvFloat("TEMPERATURE", 0.7),
		CompletionTimeout: time.Duration(getEnvInt("COMPLETION_TIMEOUT_MS", 60000)) * time.Millisecond,

		RefinementPolicy: getEnv("REFINEMENT_POLICY", "lenient"),

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:  getEnv("DYNAMODB_TABLE", "jdbuilder-analyses"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "jdbuilder"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required in production")
		}
		if c.StorageBackend == "dynamodb" && c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required when STORAGE_BACKEND=dynamodb")
		}
	}
	switch c.RefinementPolicy {
	case "lenient", "strict":
	default:
		return fmt.Errorf("REFINEMENT_POLICY must be lenient or strict, got %q", c.RefinementPolicy)
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
