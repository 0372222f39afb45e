package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the mediawatch analysis worker.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// EngineConfig configures the external analysis engine. Rates are USD per
// 1000 tokens and feed the per-job cost accounting.
type EngineConfig struct {
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
	InputRatePer1K  float64
	OutputRatePer1K float64
	OpenAI          OpenAIConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// WorkerConfig configures the job poller.
type WorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("MEDIAWATCH_PORT", 8080),
			Env:  envString("MEDIAWATCH_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Engine: EngineConfig{
			Timeout:         envDuration("ENGINE_TIMEOUT", 60*time.Second),
			Temperature:     envFloat("ENGINE_TEMPERATURE", 0.3),
			MaxOutputTokens: envInt("ENGINE_MAX_OUTPUT_TOKENS", 2000),
			InputRatePer1K:  envFloat("ENGINE_INPUT_RATE_PER_1K", 0.0025),
			OutputRatePer1K: envFloat("ENGINE_OUTPUT_RATE_PER_1K", 0.01),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
		},
		Worker: WorkerConfig{
			PollInterval:   envDuration("WORKER_POLL_INTERVAL", 30*time.Second),
			BatchSize:      envInt("WORKER_BATCH_SIZE", 5),
			MaxAttempts:    envInt("WORKER_MAX_ATTEMPTS", 3),
			RetryBaseDelay: envDuration("WORKER_RETRY_BASE_DELAY", 5*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Engine.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive, got %d", c.Worker.BatchSize)
	}
	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be positive, got %d", c.Worker.MaxAttempts)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive, got %s", c.Worker.PollInterval)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
