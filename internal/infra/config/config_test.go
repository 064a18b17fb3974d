package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "llama3:8b", cfg.Ollama.Model)
	assert.InDelta(t, 0.7, cfg.Ollama.Temperature, 1e-9)
	assert.InDelta(t, 0.9, cfg.Ollama.TopP, 1e-9)
	assert.Equal(t, 40, cfg.Ollama.TopK)
	assert.Equal(t, 512, cfg.Ollama.MaxTokens)
	assert.Equal(t, 120, cfg.Ollama.Timeout)
	assert.Equal(t, 300, cfg.Worker.JobTimeout)
	assert.Equal(t, 3600, cfg.Worker.ResultTTL)
	assert.Equal(t, 30, cfg.Worker.CriteriaCacheTTL)
	assert.Equal(t, "text_analysis", cfg.Postgres.DBName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "qwen2:7b")
	t.Setenv("OLLAMA_TEMPERATURE", "0.2")
	t.Setenv("OLLAMA_TOP_K", "10")
	t.Setenv("TASK_TIMEOUT", "60")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "qwen2:7b", cfg.Ollama.Model)
	assert.InDelta(t, 0.2, cfg.Ollama.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.Ollama.TopK)
	assert.Equal(t, 60, cfg.Worker.JobTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("OLLAMA_TOP_K", "not-a-number")
	t.Setenv("OLLAMA_TEMPERATURE", "warm")

	cfg := Load()

	assert.Equal(t, 40, cfg.Ollama.TopK)
	assert.InDelta(t, 0.7, cfg.Ollama.Temperature, 1e-9)
}

func TestLoad_SecretFromFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "db_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("s3cret\n"), 0o600))

	t.Setenv("DB_PASSWORD_FILE", secretPath)

	cfg := Load()
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
}

func TestLoad_EnvSecretWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "db_password")
	require.NoError(t, os.WriteFile(secretPath, []byte("from-file"), 0o600))

	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("DB_PASSWORD_FILE", secretPath)

	cfg := Load()
	assert.Equal(t, "from-env", cfg.Postgres.Password)
}

func TestPostgresDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "analyzer")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "events")

	cfg := Load()
	assert.Equal(t, "postgres://analyzer:pw@db.local:5433/events?sslmode=disable", cfg.PostgresDSN())
}
