package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	APIToken    string
	CORSOrigins []string
	Env         string

	// S3 Storage
	S3 S3Config

	// Learner tunes the category learner's confidence arithmetic.
	Learner LearnerConfig
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// LearnerConfig holds the category learner tuning knobs
type LearnerConfig struct {
	// AcceptThreshold is the minimum rule confidence for an automatic
	// category assignment.
	AcceptThreshold float64
	// LearningRate controls how fast confirmations push confidence
	// toward 1.
	LearningRate float64
	// OverrideDecay multiplies a rule's confidence when the user picks
	// a different category than the rule suggested.
	OverrideDecay float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		APIToken:    getEnv("API_TOKEN", ""),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", "bitflow-statements"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
		Learner: LearnerConfig{
			AcceptThreshold: getEnvFloat("LEARNER_ACCEPT_THRESHOLD", 0.6),
			LearningRate:    getEnvFloat("LEARNER_RATE", 0.3),
			OverrideDecay:   getEnvFloat("LEARNER_DECAY", 0.5),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Learner.AcceptThreshold <= 0 || c.Learner.AcceptThreshold > 1 {
		return fmt.Errorf("LEARNER_ACCEPT_THRESHOLD must be in (0, 1]")
	}
	if c.Learner.LearningRate <= 0 || c.Learner.LearningRate > 1 {
		return fmt.Errorf("LEARNER_RATE must be in (0, 1]")
	}
	if c.Learner.OverrideDecay <= 0 || c.Learner.OverrideDecay >= 1 {
		return fmt.Errorf("LEARNER_DECAY must be in (0, 1)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
