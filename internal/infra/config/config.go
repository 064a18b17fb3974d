// Package config loads the immutable service configuration from the
// environment, once, at startup. Pipeline logic never reads settings
// ambiently: every component receives its values through construction.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	Ollama     OllamaConfig
	Worker     WorkerConfig

	LogLevel    string
	OTelEnabled bool
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

type RedisConfig struct {
	URL string
}

type OllamaConfig struct {
	URL         string
	Model       string
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
	// Timeout is the per-inference-call transport timeout in seconds; it
	// is the only timeout enforced inside the pipeline.
	Timeout int
}

type WorkerConfig struct {
	// JobTimeout bounds one whole job, in seconds.
	JobTimeout int
	// BlockTimeout is the queue poll blocking window, in seconds.
	BlockTimeout int
	// ResultTTL bounds how long finished results stay readable, in seconds.
	ResultTTL int
	// ProgressTTL bounds progress snapshots, in seconds.
	ProgressTTL int
	// CriteriaCacheTTL bounds the cached active-criteria set, in seconds.
	// Zero disables caching.
	CriteriaCacheTTL int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8000"),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "pg"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "postgres"),
			DBName:   getEnv("DB_NAME", "text_analysis"),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("CLICKHOUSE_ADDR", "ch:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "default"),
			Username: getEnv("CLICKHOUSE_USER", "default"),
			Password: getSecret("CLICKHOUSE_PASSWORD", "CLICKHOUSE_PASSWORD_FILE", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://redis:6379/0"),
		},
		Ollama: OllamaConfig{
			URL:         getEnv("OLLAMA_URL", "http://llm:11434"),
			Model:       getEnv("OLLAMA_MODEL", "llama3:8b"),
			Temperature: getEnvFloat("OLLAMA_TEMPERATURE", 0.7),
			TopP:        getEnvFloat("OLLAMA_TOP_P", 0.9),
			TopK:        getEnvInt("OLLAMA_TOP_K", 40),
			MaxTokens:   getEnvInt("OLLAMA_MAX_TOKENS", 512),
			Timeout:     getEnvInt("OLLAMA_TIMEOUT", 120),
		},
		Worker: WorkerConfig{
			JobTimeout:       getEnvInt("TASK_TIMEOUT", 300),
			BlockTimeout:     getEnvInt("QUEUE_BLOCK_TIMEOUT", 5),
			ResultTTL:        getEnvInt("RESULT_TTL", 3600),
			ProgressTTL:      getEnvInt("PROGRESS_TTL", 3600),
			CriteriaCacheTTL: getEnvInt("CRITERIA_CACHE_TTL", 30),
		},
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		OTelEnabled: getEnvBool("OTEL_ENABLED", false),
	}
}

// PostgresDSN renders the connection string for pgx.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.Postgres.User, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
